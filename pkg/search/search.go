// Package search defines the full-text index contract the indexing
// pipeline writes to and the search path reads from.
package search

import (
	"context"
	"time"
)

// Doc is the indexed document for one object. Field names line up with
// the index settings: user_id is filterable, created_at is sortable.
// Ids are serialized as strings; snowflake ids do not survive the
// float64 round-trip JSON numbers take.
type Doc struct {
	ID        int64     `json:"id,string"`
	OwnerID   int64     `json:"user_id,string"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Index interface {
	// Upsert writes the document, replacing any previous one with the
	// same id.
	Upsert(ctx context.Context, doc Doc) error
	// Search returns object ids for the owner ranked by relevance,
	// newest first among ties.
	Search(ctx context.Context, ownerID int64, query string) ([]int64, error)
}
