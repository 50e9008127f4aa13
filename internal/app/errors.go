package app

import "errors"

var (
	// ErrNotFound covers missing decks and sessions; operations on a
	// missing id never create a placeholder.
	ErrNotFound = errors.New("not found")
	// ErrIngestionBusy rejects a second ingestion while one is running
	// for the same deck, so partial writes never interleave.
	ErrIngestionBusy = errors.New("ingestion already in progress")
	// ErrNoTopics means the deck's syllabus yielded no topics at all.
	ErrNoTopics = errors.New("deck has no syllabus topics")
)
