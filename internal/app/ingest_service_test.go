package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"syllabo/internal/ingest"
	"syllabo/internal/model"
	"syllabo/internal/platform/qdrant"
	"syllabo/internal/syllabus"
)

type fakeEmbedder struct{}

// EmbedBatch derives a deterministic unit-ish vector from each text so
// equal texts always embed equally.
func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 4)
		for j, r := range text {
			vec[j%4] += float32(r%13) / 13
		}
		vec[0] += 1 // never the zero vector
		out[i] = vec
	}
	return out, nil
}

type fakeDeckStore struct {
	deck *model.Deck
}

func (f *fakeDeckStore) GetByIDAndUserID(id, userID uint) (*model.Deck, error) {
	if f.deck == nil || f.deck.ID != id || f.deck.UserID != userID {
		return nil, nil
	}
	return f.deck, nil
}

func (f *fakeDeckStore) MarkQueued(id uint) (bool, error) {
	if f.deck.IngestionStatus == model.IngestionStatusProcessing {
		return false, nil
	}
	f.deck.IngestionStatus = model.IngestionStatusPending
	f.deck.IngestionError = ""
	return true, nil
}

func (f *fakeDeckStore) MarkProcessing(id uint) (bool, error) {
	if f.deck.IngestionStatus == model.IngestionStatusProcessing {
		return false, nil
	}
	f.deck.IngestionStatus = model.IngestionStatusProcessing
	f.deck.IngestionError = ""
	return true, nil
}

func (f *fakeDeckStore) FinishIngestion(id uint, status, ingestErr string, chunkCount int) error {
	f.deck.IngestionStatus = status
	f.deck.IngestionError = ingestErr
	f.deck.ChunkCount = chunkCount
	return nil
}

type fakeChunkStore struct {
	rows   map[uint]model.Chunk
	nextID uint
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{rows: make(map[uint]model.Chunk)}
}

func (f *fakeChunkStore) ReplaceForFile(deckID uint, sourceFile string, chunks []model.Chunk) ([]model.Chunk, error) {
	for id, row := range f.rows {
		if row.DeckID == deckID && row.SourceFile == sourceFile {
			delete(f.rows, id)
		}
	}
	out := make([]model.Chunk, len(chunks))
	for i, c := range chunks {
		f.nextID++
		c.ID = f.nextID
		f.rows[c.ID] = c
		out[i] = c
	}
	return out, nil
}

func (f *fakeChunkStore) DeleteByIDs(ids []uint) error {
	for _, id := range ids {
		delete(f.rows, id)
	}
	return nil
}

func (f *fakeChunkStore) CountByDeckID(deckID uint) (int, error) {
	n := 0
	for _, row := range f.rows {
		if row.DeckID == deckID {
			n++
		}
	}
	return n, nil
}

func (f *fakeChunkStore) forFile(sourceFile string) []model.Chunk {
	var out []model.Chunk
	for _, row := range f.rows {
		if row.SourceFile == sourceFile {
			out = append(out, row)
		}
	}
	return out
}

type fakeFileStore struct {
	records map[string]model.IngestedFile
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{records: make(map[string]model.IngestedFile)}
}

func (f *fakeFileStore) Upsert(file *model.IngestedFile) error {
	f.records[file.Filename] = *file
	return nil
}

type fakeVectorStore struct {
	points     map[string]map[uint64]qdrant.Point
	failUpsert bool
	failDelete bool
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{points: make(map[string]map[uint64]qdrant.Point)}
}

func (f *fakeVectorStore) EnsureCollection(_ context.Context, collection string, dim int) error {
	if f.points[collection] == nil {
		f.points[collection] = make(map[uint64]qdrant.Point)
	}
	return nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, collection string, points []qdrant.Point) error {
	if f.failUpsert {
		return errors.New("upsert unavailable")
	}
	for _, p := range points {
		f.points[collection][p.ID] = p
	}
	return nil
}

func (f *fakeVectorStore) DeleteBySourceFile(_ context.Context, collection, sourceFile string) error {
	if f.failDelete {
		return errors.New("delete filter unavailable")
	}
	for id, p := range f.points[collection] {
		if p.Payload["source_file"] == sourceFile {
			delete(f.points[collection], id)
		}
	}
	return nil
}

func (f *fakeVectorStore) DeleteByIDs(_ context.Context, collection string, ids []uint64) error {
	for _, id := range ids {
		delete(f.points[collection], id)
	}
	return nil
}

func (f *fakeVectorStore) countBySource(collection, sourceFile string) int {
	n := 0
	for _, p := range f.points[collection] {
		if p.Payload["source_file"] == sourceFile {
			n++
		}
	}
	return n
}

type fakePublisher struct {
	jobs []ingest.Job
	fail bool
}

func (f *fakePublisher) Publish(_ context.Context, job ingest.Job) error {
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type ingestFixture struct {
	svc       *IngestService
	decks     *fakeDeckStore
	chunks    *fakeChunkStore
	files     *fakeFileStore
	vectors   *fakeVectorStore
	publisher *fakePublisher
	deck      *model.Deck
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()

	topics, err := syllabus.Parse("Unit 1: Linear Algebra\n1.1 Vectors\n1.2 Matrices")
	if err != nil {
		t.Fatalf("parse syllabus: %v", err)
	}
	tree, err := syllabus.EncodeTree(topics)
	if err != nil {
		t.Fatalf("encode tree: %v", err)
	}

	deck := &model.Deck{
		ID:              7,
		UserID:          3,
		Name:            "algebra",
		SyllabusTree:    tree,
		IngestionStatus: model.IngestionStatusPending,
	}

	f := &ingestFixture{
		decks:     &fakeDeckStore{deck: deck},
		chunks:    newFakeChunkStore(),
		files:     newFakeFileStore(),
		vectors:   newFakeVectorStore(),
		publisher: &fakePublisher{},
		deck:      deck,
	}
	f.svc = NewIngestService(
		f.decks,
		f.chunks,
		f.files,
		fakeEmbedder{},
		f.vectors,
		f.publisher,
		newTopicIndexCache(fakeEmbedder{}),
		ingest.NewChunker(60, 10, 5),
		t.TempDir(),
		10,
		0.4,
	)
	return f
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	return path
}

const lectureText = "A vector is a quantity with magnitude and direction. " +
	"Vectors add component-wise and scale by real numbers. " +
	"A matrix is a rectangular array of numbers arranged in rows and columns. " +
	"Matrix multiplication composes linear maps."

func TestEnqueueMarksDeckPending(t *testing.T) {
	f := newIngestFixture(t)
	f.deck.IngestionStatus = model.IngestionStatusDone
	f.deck.ChunkCount = 12

	err := f.svc.Enqueue(context.Background(), f.deck.UserID, f.deck.ID, []Upload{
		{Filename: "notes.txt", Reader: strings.NewReader(lectureText)},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if got := f.deck.IngestionStatus; got != model.IngestionStatusPending {
		t.Fatalf("deck status after enqueue = %q, want pending", got)
	}
	if len(f.publisher.jobs) != 1 {
		t.Fatalf("expected 1 published job, got %d", len(f.publisher.jobs))
	}
	job := f.publisher.jobs[0]
	if job.DeckID != f.deck.ID || job.UserID != f.deck.UserID || len(job.FilePaths) != 1 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if _, err := os.Stat(job.FilePaths[0]); err != nil {
		t.Fatalf("saved upload missing: %v", err)
	}
}

func TestEnqueueRejectsWhileProcessing(t *testing.T) {
	f := newIngestFixture(t)
	f.deck.IngestionStatus = model.IngestionStatusProcessing

	err := f.svc.Enqueue(context.Background(), f.deck.UserID, f.deck.ID, []Upload{
		{Filename: "notes.txt", Reader: strings.NewReader(lectureText)},
	})
	if !errors.Is(err, ErrIngestionBusy) {
		t.Fatalf("expected ErrIngestionBusy, got %v", err)
	}
	if len(f.publisher.jobs) != 0 {
		t.Fatalf("no job should be published for a busy deck, got %d", len(f.publisher.jobs))
	}
}

func TestEnqueueFailsDeckWhenPublishFails(t *testing.T) {
	f := newIngestFixture(t)
	f.deck.IngestionStatus = model.IngestionStatusDone
	f.publisher.fail = true

	err := f.svc.Enqueue(context.Background(), f.deck.UserID, f.deck.ID, []Upload{
		{Filename: "notes.txt", Reader: strings.NewReader(lectureText)},
	})
	if err == nil {
		t.Fatal("expected publish error")
	}
	if got := f.deck.IngestionStatus; got != model.IngestionStatusFailed {
		t.Fatalf("deck status = %q, want failed so the poll does not hang on pending", got)
	}
}

func TestReingestSameFileReplacesChunks(t *testing.T) {
	f := newIngestFixture(t)
	path := writeSource(t, t.TempDir(), "notes.txt", lectureText)
	job := ingest.Job{DeckID: f.deck.ID, UserID: f.deck.UserID, FilePaths: []string{path}}

	if err := f.svc.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	first := f.chunks.forFile("notes.txt")
	if len(first) == 0 {
		t.Fatal("first ingest produced no chunks")
	}
	for _, row := range first {
		if row.TokenCount != utf8.RuneCountInString(row.Content) {
			t.Fatalf("chunk %d token count = %d, want %d", row.ID, row.TokenCount, utf8.RuneCountInString(row.Content))
		}
	}
	collection := f.deck.CollectionName()
	if got := f.vectors.countBySource(collection, "notes.txt"); got != len(first) {
		t.Fatalf("vector count = %d, want %d", got, len(first))
	}

	if err := f.svc.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	second := f.chunks.forFile("notes.txt")
	if len(second) != len(first) {
		t.Fatalf("re-upload changed chunk count: %d then %d, want replacement not accumulation", len(first), len(second))
	}
	if got := f.vectors.countBySource(collection, "notes.txt"); got != len(second) {
		t.Fatalf("vector count after re-upload = %d, want %d", got, len(second))
	}
	if got := f.deck.IngestionStatus; got != model.IngestionStatusDone {
		t.Fatalf("deck status = %q, want done", got)
	}
	if f.deck.ChunkCount != len(second) {
		t.Fatalf("deck chunk count = %d, want %d", f.deck.ChunkCount, len(second))
	}
}

func TestVectorUpsertFailureLeavesNoPartialFile(t *testing.T) {
	f := newIngestFixture(t)
	f.vectors.failUpsert = true
	path := writeSource(t, t.TempDir(), "notes.txt", lectureText)

	err := f.svc.ProcessJob(context.Background(), ingest.Job{
		DeckID: f.deck.ID, UserID: f.deck.UserID, FilePaths: []string{path},
	})
	if err != nil {
		t.Fatalf("per-file failures must not abort the batch: %v", err)
	}

	if got := len(f.chunks.forFile("notes.txt")); got != 0 {
		t.Fatalf("failed file left %d metadata rows behind", got)
	}
	if got := f.vectors.countBySource(f.deck.CollectionName(), "notes.txt"); got != 0 {
		t.Fatalf("failed file left %d vectors behind", got)
	}
	record, ok := f.files.records["notes.txt"]
	if !ok || record.Status != model.IngestionStatusFailed {
		t.Fatalf("file record = %+v, want failed", record)
	}
	if got := f.deck.IngestionStatus; got != model.IngestionStatusFailed {
		t.Fatalf("deck status = %q, want failed when every file failed", got)
	}
}

func TestVectorDeleteFailureKeepsPreviousIngest(t *testing.T) {
	f := newIngestFixture(t)
	path := writeSource(t, t.TempDir(), "notes.txt", lectureText)
	job := ingest.Job{DeckID: f.deck.ID, UserID: f.deck.UserID, FilePaths: []string{path}}

	if err := f.svc.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	first := f.chunks.forFile("notes.txt")
	collection := f.deck.CollectionName()
	firstVectors := f.vectors.countBySource(collection, "notes.txt")

	f.vectors.failDelete = true
	if err := f.svc.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("per-file failures must not abort the batch: %v", err)
	}

	// The old chunks and their vectors must both survive: rows and
	// points stay paired, so retrieval keeps working on the previous
	// ingest instead of skipping orphaned points.
	after := f.chunks.forFile("notes.txt")
	if len(after) != len(first) {
		t.Fatalf("metadata rows changed on failed re-ingest: %d then %d", len(first), len(after))
	}
	afterIDs := make(map[uint]bool, len(after))
	for _, row := range after {
		afterIDs[row.ID] = true
	}
	for _, row := range first {
		if !afterIDs[row.ID] {
			t.Fatalf("original chunk %d was dropped by the failed re-ingest", row.ID)
		}
	}
	if got := f.vectors.countBySource(collection, "notes.txt"); got != firstVectors {
		t.Fatalf("vector count changed on failed re-ingest: %d then %d", firstVectors, got)
	}
	record := f.files.records["notes.txt"]
	if record.Status != model.IngestionStatusFailed {
		t.Fatalf("file record status = %q, want failed", record.Status)
	}
}
