// Package store defines where reconciled state is persisted between runs.
package store

import (
	"context"
	"errors"
	"gradewatch/internal/record"
	"time"
)

// ErrDocumentNotFound is returned by a ContentStore that was never written.
var ErrDocumentNotFound = errors.New("state document does not exist")

// RecordStore holds the grade records of one spreadsheet-like range. Save
// always replaces the whole set.
type RecordStore interface {
	Load(ctx context.Context) ([]*record.Record, error)
	Save(ctx context.Context, records []*record.Record) error
}

// ContentState is the list of content item ids seen so far.
type ContentState struct {
	Items      []string  `json:"items"`
	LastUpdate time.Time `json:"last_update"`
}

type ContentStore interface {
	Load(ctx context.Context) (ContentState, error)
	Save(ctx context.Context, state ContentState) error
}
