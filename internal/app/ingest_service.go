package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"syllabo/internal/ingest"
	"syllabo/internal/model"
	"syllabo/internal/platform/qdrant"
	"syllabo/internal/syllabus"
)

type JobPublisher interface {
	Publish(ctx context.Context, job ingest.Job) error
}

// The ingestion pipeline talks to its stores through narrow interfaces;
// the repository and qdrant types satisfy them.
type deckStore interface {
	GetByIDAndUserID(id, userID uint) (*model.Deck, error)
	MarkQueued(id uint) (bool, error)
	MarkProcessing(id uint) (bool, error)
	FinishIngestion(id uint, status, ingestErr string, chunkCount int) error
}

type chunkStore interface {
	ReplaceForFile(deckID uint, sourceFile string, chunks []model.Chunk) ([]model.Chunk, error)
	DeleteByIDs(ids []uint) error
	CountByDeckID(deckID uint) (int, error)
}

type fileStore interface {
	Upsert(file *model.IngestedFile) error
}

type vectorStore interface {
	EnsureCollection(ctx context.Context, collection string, dim int) error
	Upsert(ctx context.Context, collection string, points []qdrant.Point) error
	DeleteBySourceFile(ctx context.Context, collection, sourceFile string) error
	DeleteByIDs(ctx context.Context, collection string, ids []uint64) error
}

type IngestService struct {
	deckRepo     deckStore
	chunkRepo    chunkStore
	fileRepo     fileStore
	llm          syllabus.Embedder
	vectors      vectorStore
	publisher    JobPublisher
	topicCache   *topicIndexCache
	chunker      *ingest.Chunker
	uploadDir    string
	batchSize    int
	mapThreshold float64
}

func NewIngestService(
	deckRepo deckStore,
	chunkRepo chunkStore,
	fileRepo fileStore,
	llm syllabus.Embedder,
	vectors vectorStore,
	publisher JobPublisher,
	topicCache *topicIndexCache,
	chunker *ingest.Chunker,
	uploadDir string,
	batchSize int,
	mapThreshold float64,
) *IngestService {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &IngestService{
		deckRepo:     deckRepo,
		chunkRepo:    chunkRepo,
		fileRepo:     fileRepo,
		llm:          llm,
		vectors:      vectors,
		publisher:    publisher,
		topicCache:   topicCache,
		chunker:      chunker,
		uploadDir:    uploadDir,
		batchSize:    batchSize,
		mapThreshold: mapThreshold,
	}
}

// Upload is one file of an upload batch.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// Enqueue saves the uploaded files to disk, flips the deck back to
// pending, and publishes one ingestion job for the batch. It returns
// immediately; the caller polls the deck's ingestion status, which now
// reflects the queued batch rather than the previous one. A deck already
// processing is rejected so two batches never interleave writes into the
// same collection; a batch queued behind another pending one simply runs
// after it.
func (s *IngestService) Enqueue(ctx context.Context, userID, deckID uint, uploads []Upload) error {
	if userID == 0 || deckID == 0 || len(uploads) == 0 {
		return ErrInvalidInput
	}
	deck, err := s.deckRepo.GetByIDAndUserID(deckID, userID)
	if err != nil {
		return err
	}
	if deck == nil {
		return ErrNotFound
	}
	if deck.IngestionStatus == model.IngestionStatusProcessing {
		return ErrIngestionBusy
	}

	dir := filepath.Join(s.uploadDir, fmt.Sprintf("deck_%d", deck.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir failed: %w", err)
	}

	paths := make([]string, 0, len(uploads))
	for _, up := range uploads {
		name := filepath.Base(strings.TrimSpace(up.Filename))
		if name == "" || name == "." {
			return ErrInvalidInput
		}
		dst := filepath.Join(dir, name)
		if err := saveUpload(dst, up.Reader); err != nil {
			return err
		}
		paths = append(paths, dst)
	}

	ok, err := s.deckRepo.MarkQueued(deck.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIngestionBusy
	}

	if err := s.publisher.Publish(ctx, ingest.Job{
		DeckID:    deck.ID,
		UserID:    userID,
		FilePaths: paths,
	}); err != nil {
		// The deck was marked pending for a job that never made it into
		// the queue; fail it so the poll doesn't hang on pending forever.
		_ = s.deckRepo.FinishIngestion(deck.ID, model.IngestionStatusFailed, trimError(err), deck.ChunkCount)
		return err
	}
	return nil
}

func saveUpload(dst string, r io.Reader) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create upload file failed: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write upload file failed: %w", err)
	}
	return nil
}

// ProcessJob runs one ingestion batch end to end. Per-file failures are
// recorded and do not abort the batch; the deck fails only when every
// file failed.
func (s *IngestService) ProcessJob(ctx context.Context, job ingest.Job) error {
	deck, err := s.deckRepo.GetByIDAndUserID(job.DeckID, job.UserID)
	if err != nil {
		return err
	}
	if deck == nil {
		return ErrNotFound
	}

	ok, err := s.deckRepo.MarkProcessing(deck.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIngestionBusy
	}

	idx, _, err := s.topicCache.get(ctx, deck)
	if err != nil {
		_ = s.deckRepo.FinishIngestion(deck.ID, model.IngestionStatusFailed, trimError(err), deck.ChunkCount)
		return err
	}

	succeeded := 0
	var fileErrs []string
	for _, path := range job.FilePaths {
		name := filepath.Base(path)
		count, fileErr := s.ingestFile(ctx, deck, idx, path)

		record := &model.IngestedFile{
			DeckID:     deck.ID,
			Filename:   name,
			ChunkCount: count,
			Status:     model.IngestionStatusDone,
		}
		if fileErr != nil {
			record.Status = model.IngestionStatusFailed
			record.Error = trimError(fileErr)
			fileErrs = append(fileErrs, fmt.Sprintf("%s: %v", name, fileErr))
		} else {
			succeeded++
		}
		if err := s.fileRepo.Upsert(record); err != nil {
			return err
		}
	}

	total, err := s.chunkRepo.CountByDeckID(deck.ID)
	if err != nil {
		return err
	}

	status := model.IngestionStatusDone
	if succeeded == 0 {
		status = model.IngestionStatusFailed
	}
	return s.deckRepo.FinishIngestion(deck.ID, status, trimError(joinErrs(fileErrs)), total)
}

// ingestFile is all-or-nothing for one source file: extract, chunk, embed,
// map, then swap the file's old chunks for the new set in both stores.
func (s *IngestService) ingestFile(ctx context.Context, deck *model.Deck, idx *syllabus.TopicIndex, path string) (int, error) {
	name := filepath.Base(path)

	text, err := ingest.ExtractFile(path)
	if err != nil {
		return 0, err
	}
	pieces := s.chunker.Split(text)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("%w: no extractable text in %s", ingest.ErrExtraction, name)
	}

	var embeddings [][]float32
	for i := 0; i < len(pieces); i += s.batchSize {
		end := i + s.batchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch, err := s.llm.EmbedBatch(ctx, pieces[i:end])
		if err != nil {
			return 0, err
		}
		embeddings = append(embeddings, batch...)
	}

	rows := make([]model.Chunk, len(pieces))
	for i := range pieces {
		rows[i] = model.Chunk{
			DeckID:     deck.ID,
			SourceFile: name,
			Seq:        i,
			Content:    pieces[i],
			TokenCount: utf8.RuneCountInString(pieces[i]),
		}
		rows[i].SetTopicIDs(idx.MapVector(embeddings[i], s.mapThreshold))
	}

	collection := deck.CollectionName()
	if err := s.vectors.EnsureCollection(ctx, collection, len(embeddings[0])); err != nil {
		return 0, err
	}

	// Re-uploading a filename replaces its chunks, never appends. The
	// file's old vectors go first: failing here leaves the previous
	// ingest fully intact, while dropping them after the metadata swap
	// could strand vectors whose rows are gone.
	if err := s.vectors.DeleteBySourceFile(ctx, collection, name); err != nil {
		return 0, err
	}
	rows, err = s.chunkRepo.ReplaceForFile(deck.ID, name, rows)
	if err != nil {
		return 0, err
	}

	points := make([]qdrant.Point, len(rows))
	for i, row := range rows {
		points[i] = qdrant.Point{
			ID:     uint64(row.ID),
			Vector: embeddings[i],
			Payload: map[string]any{
				"source_file": name,
				"seq":         row.Seq,
			},
		}
	}
	if err := s.vectors.Upsert(ctx, collection, points); err != nil {
		s.unwindRows(ctx, collection, rows)
		return 0, err
	}
	return len(rows), nil
}

// unwindRows removes metadata rows whose vectors never landed, so a
// failed file leaves no half-ingested chunks behind.
func (s *IngestService) unwindRows(ctx context.Context, collection string, rows []model.Chunk) {
	ids := make([]uint, len(rows))
	pointIDs := make([]uint64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		pointIDs[i] = uint64(row.ID)
	}
	_ = s.chunkRepo.DeleteByIDs(ids)
	_ = s.vectors.DeleteByIDs(ctx, collection, pointIDs)
}

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
