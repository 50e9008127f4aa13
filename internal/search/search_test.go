package search

import (
	"context"
	"testing"
)

const samplePage = `
<div class="result">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fen.wikipedia.org%2Fwiki%2FSemaphore_(programming)&amp;rut=abc">Semaphore <b>(programming)</b></a>
  <a class="result__snippet" href="#">In computer science, a <b>semaphore</b> is a variable used to control access.</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://randomblog.example.com/semaphores">My hot take on semaphores</a>
  <a class="result__snippet" href="#">Untrusted content here.</a>
</div>
<div class="result">
  <a rel="nofollow" class="result__a" href="https://www.geeksforgeeks.org/semaphores-in-process-synchronization/">Semaphores in Process Synchronization</a>
  <a class="result__snippet" href="#">A semaphore is an integer variable.</a>
</div>
`

func testClient() *Client {
	return NewClient([]string{"wikipedia.org", "geeksforgeeks.org", "tutorialspoint.com"}, 3, 8, true)
}

func TestParseResultsKeepsOnlyTrustedDomains(t *testing.T) {
	results := testClient().parseResults(samplePage)
	if len(results) != 2 {
		t.Fatalf("expected 2 trusted results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if r.URL == "https://randomblog.example.com/semaphores" {
			t.Fatalf("untrusted domain leaked into results")
		}
	}
}

func TestParseResultsUnwrapsRedirectsAndStripsTags(t *testing.T) {
	results := testClient().parseResults(samplePage)
	if results[0].URL != "https://en.wikipedia.org/wiki/Semaphore_(programming)" {
		t.Fatalf("redirect not unwrapped: %q", results[0].URL)
	}
	if results[0].Title != "Semaphore (programming)" {
		t.Fatalf("tags not stripped from title: %q", results[0].Title)
	}
	if results[0].Snippet == "" || results[0].Snippet[0] == '<' {
		t.Fatalf("snippet not cleaned: %q", results[0].Snippet)
	}
}

func TestParseResultsHonorsMaxResults(t *testing.T) {
	c := NewClient([]string{"wikipedia.org", "geeksforgeeks.org"}, 1, 8, true)
	if results := c.parseResults(samplePage); len(results) != 1 {
		t.Fatalf("expected max 1 result, got %d", len(results))
	}
}

func TestIsTrustedMatchesSubdomains(t *testing.T) {
	c := testClient()
	if !c.isTrusted("https://en.wikipedia.org/wiki/Paging") {
		t.Fatalf("subdomain of trusted domain should pass")
	}
	if c.isTrusted("https://notwikipedia.org/wiki/Paging") {
		t.Fatalf("lookalike domain should fail")
	}
	if c.isTrusted("https://wikipedia.org.evil.com/") {
		t.Fatalf("suffix-spoofed domain should fail")
	}
}

func TestDisabledClientReturnsNothing(t *testing.T) {
	c := NewClient(nil, 3, 8, false)
	results, err := c.Search(context.Background(), "anything")
	if err != nil || results != nil {
		t.Fatalf("disabled client must be inert, got %v %v", results, err)
	}
}
