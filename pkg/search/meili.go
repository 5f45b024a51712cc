package search

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meilisearch/meilisearch-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/linkersh/linkersh-cdn/pkg/env"
)

const indexName = "objects_ocr"

var xlog = logrus.WithField("module", "search")

// Meili implements Index against a Meilisearch server.
type Meili struct {
	client *meilisearch.Client
}

var _ Index = (*Meili)(nil)

func NewMeili() (*Meili, error) {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   env.String("MEILI_URL", "http://127.0.0.1:7700"),
		APIKey: env.MustString("MEILI_MASTER_KEY"),
	})

	idx := client.Index(indexName)
	if _, err := idx.UpdateFilterableAttributes(&[]string{"user_id"}); err != nil {
		return nil, errors.Wrap(err, "set filterable attributes")
	}
	if _, err := idx.UpdateSortableAttributes(&[]string{"created_at"}); err != nil {
		return nil, errors.Wrap(err, "set sortable attributes")
	}

	xlog.Info("connected to meilisearch")
	return &Meili{client: client}, nil
}

func (m *Meili) Upsert(ctx context.Context, doc Doc) error {
	idx := m.client.Index(indexName)
	_, err := idx.AddDocuments([]Doc{doc}, "id")
	return err
}

func (m *Meili) Search(ctx context.Context, ownerID int64, query string) ([]int64, error) {
	idx := m.client.Index(indexName)
	resp, err := idx.Search(query, &meilisearch.SearchRequest{
		Filter: fmt.Sprintf("user_id = %q", strconv.FormatInt(ownerID, 10)),
		Sort:   []string{"created_at:desc"},
		Limit:  16,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		m, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		raw, _ := m["id"].(string)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			xlog.WithField("id", raw).Warn("skipping hit with malformed id")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
