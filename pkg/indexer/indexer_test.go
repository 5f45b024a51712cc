package indexer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkersh/linkersh-cdn/biz"
	"github.com/linkersh/linkersh-cdn/biz/testutil"
	"github.com/linkersh/linkersh-cdn/pkg/blob"
	"github.com/linkersh/linkersh-cdn/pkg/catalog"
	"github.com/linkersh/linkersh-cdn/pkg/search"
	"github.com/linkersh/linkersh-cdn/pkg/snowflake"
)

// fakeEngine recognizes a fixed string per image content.
type fakeEngine struct {
	mu    sync.Mutex
	calls int
	text  map[string]string // blob content -> recognized text
	fail  map[string]bool   // blob content -> force failure
}

func (e *fakeEngine) ExtractText(ctx context.Context, image []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	key := string(image)
	if e.fail[key] {
		return "", errors.New("model unavailable")
	}
	return e.text[key], nil
}

// memIndex is an in-memory stand-in for the search service.
type memIndex struct {
	mu   sync.Mutex
	docs map[int64]search.Doc
}

func newMemIndex() *memIndex { return &memIndex{docs: map[int64]search.Doc{}} }

func (m *memIndex) Upsert(ctx context.Context, doc search.Doc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *memIndex) Search(ctx context.Context, ownerID int64, query string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, doc := range m.docs {
		if doc.OwnerID == ownerID && strings.Contains(doc.Content, query) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fixture struct {
	sched  *Scheduler
	cat    *catalog.Catalog
	store  *blob.LocalFS
	engine *fakeEngine
	index  *memIndex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testutil.ResetTestDB()
	store, err := blob.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	engine := &fakeEngine{text: map[string]string{}, fail: map[string]bool{}}
	index := newMemIndex()
	cat := catalog.New()
	return &fixture{
		sched: &Scheduler{
			Catalog: cat,
			Blobs:   store,
			OCR:     engine,
			Search:  index,
		},
		cat:    cat,
		store:  store,
		engine: engine,
		index:  index,
	}
}

// seed creates a catalog row plus its blob and returns the id.
func (f *fixture) seed(t *testing.T, ownerID int64, contentType, content string, flags int64) int64 {
	t.Helper()
	ctx := context.Background()
	id := snowflake.SnowflakeId()
	_, err := f.store.Put(ctx, ownerID, id, strings.NewReader(content), contentType)
	require.NoError(t, err)
	require.NoError(t, f.cat.CreateObjects(ctx, []biz.CdnObject{{
		ID:          id,
		OwnerID:     ownerID,
		ContentType: contentType,
		ContentSize: int64(len(content)),
		FileName:    "seed.png",
		ContentHash: content, // uniqueness is all the tests need
		Flags:       flags,
	}}))
	return id
}

func flagsOf(t *testing.T, cat *catalog.Catalog, ownerID, id int64) int64 {
	t.Helper()
	obj, err := cat.Get(context.Background(), ownerID, id)
	require.NoError(t, err)
	return obj.Flags
}

func TestRunOnceIndexesSearchableObjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.seed(t, 7, "image/png", "receipt-bytes", biz.FlagSearchable)
	f.engine.text["receipt-bytes"] = "total 12.50"

	require.NoError(t, f.sched.RunOnce(ctx))

	assert.Equal(t, biz.FlagSearchable|biz.FlagIndexed, flagsOf(t, f.cat, 7, id))
	doc, ok := f.index.docs[id]
	require.True(t, ok)
	assert.Equal(t, "total 12.50", doc.Content)
	assert.Equal(t, int64(7), doc.OwnerID)

	// a second sweep finds nothing left to do
	calls := f.engine.calls
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, calls, f.engine.calls)
}

func TestRunOnceSkipsRawObjects(t *testing.T) {
	f := newFixture(t)

	id := f.seed(t, 7, "application/pdf", "pdf-bytes", 0)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Zero(t, f.engine.calls)
	assert.Zero(t, flagsOf(t, f.cat, 7, id))
	assert.Empty(t, f.index.docs)
}

func TestRunOnceIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	good := f.seed(t, 7, "image/png", "good-bytes", biz.FlagSearchable)
	bad := f.seed(t, 7, "image/png", "bad-bytes", biz.FlagSearchable)
	f.engine.text["good-bytes"] = "hello"
	f.engine.fail["bad-bytes"] = true

	require.NoError(t, f.sched.RunOnce(ctx))

	assert.Equal(t, biz.FlagSearchable|biz.FlagIndexed, flagsOf(t, f.cat, 7, good))
	// the failed object stays unindexed and is picked up again
	assert.Equal(t, biz.FlagSearchable, flagsOf(t, f.cat, 7, bad))

	f.engine.fail["bad-bytes"] = false
	f.engine.text["bad-bytes"] = "world"
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, biz.FlagSearchable|biz.FlagIndexed, flagsOf(t, f.cat, 7, bad))
}

func TestRunOnceMissingBlobLeavesFlagsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.seed(t, 7, "image/png", "gone-bytes", biz.FlagSearchable)
	require.NoError(t, f.store.Delete(ctx, 7, id))

	require.NoError(t, f.sched.RunOnce(ctx))

	assert.Equal(t, biz.FlagSearchable, flagsOf(t, f.cat, 7, id))
	assert.Empty(t, f.index.docs)
}

func TestRunOnceEmptyTextStillIndexes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.seed(t, 7, "image/png", "blank-bytes", biz.FlagSearchable)
	// engine returns "" for unknown content

	require.NoError(t, f.sched.RunOnce(ctx))

	assert.Equal(t, biz.FlagSearchable|biz.FlagIndexed, flagsOf(t, f.cat, 7, id))
	doc, ok := f.index.docs[id]
	require.True(t, ok)
	assert.Empty(t, doc.Content)
}

func TestRunOnceMultipleWorkers(t *testing.T) {
	f := newFixture(t)
	f.sched.Workers = 4
	ctx := context.Background()

	var ids []int64
	for _, content := range []string{"w1", "w2", "w3", "w4", "w5", "w6"} {
		f.engine.text[content] = "text " + content
		ids = append(ids, f.seed(t, 7, "image/png", content, biz.FlagSearchable))
	}

	require.NoError(t, f.sched.RunOnce(ctx))

	for _, id := range ids {
		assert.Equal(t, biz.FlagSearchable|biz.FlagIndexed, flagsOf(t, f.cat, 7, id))
	}
	assert.Len(t, f.index.docs, len(ids))
}
