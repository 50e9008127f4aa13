package search

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Result is one whitelisted search hit. Results are prompt material only;
// they are never written to any store.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client queries the DuckDuckGo HTML endpoint and keeps only hits from
// trusted educational domains.
type Client struct {
	httpClient *http.Client
	trusted    []string
	maxResults int
	enabled    bool
}

func NewClient(trustedDomains []string, maxResults, timeoutSeconds int, enabled bool) *Client {
	if maxResults <= 0 {
		maxResults = 3
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 8
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		trusted:    trustedDomains,
		maxResults: maxResults,
		enabled:    enabled,
	}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

var (
	resultRe  = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	snippetRe = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

// Search returns up to maxResults trusted hits for the query. A search
// failure or an empty trusted set yields an empty slice, not an error
// path the caller has to special-case.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.enabled {
		return nil, nil
	}

	endpoint := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; syllabo/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search response status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response failed: %w", err)
	}

	return c.parseResults(string(body)), nil
}

func (c *Client) parseResults(page string) []Result {
	links := resultRe.FindAllStringSubmatch(page, -1)
	snippets := snippetRe.FindAllStringSubmatch(page, -1)

	var results []Result
	for i, m := range links {
		link := resolveLink(m[1])
		if !c.isTrusted(link) {
			continue
		}
		r := Result{
			Title: cleanHTML(m[2]),
			URL:   link,
		}
		if i < len(snippets) {
			r.Snippet = cleanHTML(snippets[i][1])
		}
		results = append(results, r)
		if len(results) >= c.maxResults {
			break
		}
	}
	return results
}

// resolveLink unwraps DuckDuckGo's redirect URLs (/l/?uddg=<encoded>).
func resolveLink(raw string) string {
	u, err := url.Parse(html.UnescapeString(raw))
	if err != nil {
		return raw
	}
	if target := u.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	return raw
}

func (c *Client) isTrusted(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, domain := range c.trusted {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func cleanHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(s, "")))
}

// Snippets flattens results into prompt-ready lines.
func Snippets(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, fmt.Sprintf("%s (%s): %s", r.Title, r.URL, r.Snippet))
	}
	return out
}
