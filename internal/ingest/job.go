package ingest

// Job is the queue payload for one asynchronous ingestion run. Paths point
// at files already saved under the upload directory by the HTTP layer.
type Job struct {
	DeckID    uint     `json:"deck_id"`
	UserID    uint     `json:"user_id"`
	FilePaths []string `json:"file_paths"`
}
