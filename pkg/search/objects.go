package search

import (
	"context"

	"github.com/pkg/errors"

	"github.com/linkersh/linkersh-cdn/biz"
)

// RankedCatalog resolves ranked ids back to catalog rows, preserving
// order.
type RankedCatalog interface {
	GetRanked(ctx context.Context, ownerID int64, ids []int64) ([]biz.CdnObject, error)
}

// Objects is the query-side composition: full-text search for ids, then
// catalog rows in rank order. Ids the catalog no longer has (deleted
// after indexing) drop out silently.
type Objects struct {
	Index   Index
	Catalog RankedCatalog
}

func (s *Objects) SearchObjects(ctx context.Context, ownerID int64, query string) ([]biz.CdnObject, error) {
	ids, err := s.Index.Search(ctx, ownerID, query)
	if err != nil {
		return nil, errors.Wrap(err, "search index")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Catalog.GetRanked(ctx, ownerID, ids)
}
