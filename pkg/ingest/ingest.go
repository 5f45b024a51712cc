// Package ingest is the upload coordinator: per-file hashing, dedup,
// blob upload, then one transactional catalog commit for the whole
// batch, with compensating blob cleanup when the commit never happens.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/linkersh/linkersh-cdn/biz"
	"github.com/linkersh/linkersh-cdn/pkg/blob"
	"github.com/linkersh/linkersh-cdn/pkg/hashx"
	"github.com/linkersh/linkersh-cdn/pkg/logx"
	"github.com/linkersh/linkersh-cdn/pkg/snowflake"
)

var xlog = logrus.WithField("module", "ingest")

// File is one member of an upload batch. Content is consumed exactly
// once.
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// Catalog is the slice of the metadata repository the coordinator
// needs.
type Catalog interface {
	FindByHash(ctx context.Context, ownerID int64, hash string) (bool, error)
	CreateObjects(ctx context.Context, objs []biz.CdnObject) error
	Delete(ctx context.Context, ownerID int64, objectIDs []int64) error
}

type Coordinator struct {
	Blobs   blob.Store
	Catalog Catalog
	// TmpDir is the spool directory for hashing; os.TempDir() when
	// empty.
	TmpDir string
}

// Ingest uploads a batch for one owner. Files whose content already
// exists for the owner are silently skipped; files that fail are
// logged and dropped without aborting their siblings. The catalog rows
// for the whole batch commit in a single transaction; if that commit
// never happens, every blob uploaded by this call is deleted again.
// Returns only the newly created rows.
func (co *Coordinator) Ingest(ctx context.Context, ownerID int64, files []File) ([]biz.CdnObject, error) {
	// fire to completion: a dropped client must not abandon in-flight
	// uploads or the commit halfway
	ctx = context.WithoutCancel(ctx)
	logger := logx.LoggerWith(ctx, xlog)
	start := time.Now()

	var (
		mu       sync.Mutex
		uploaded []biz.CdnObject // blobs persisted, rows not yet committed
		claimed  = make(map[string]struct{})
	)
	// claim dedups hashes inside the batch itself; the catalog lookup
	// only sees rows committed by earlier calls
	claim := func(hash string) bool {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := claimed[hash]; ok {
			return false
		}
		claimed[hash] = struct{}{}
		return true
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// compensation: this call must not leave blobs with no catalog
		// row behind
		mu.Lock()
		orphans := uploaded
		mu.Unlock()
		for _, o := range orphans {
			if err := co.Blobs.Delete(ctx, o.OwnerID, o.ID); err != nil {
				logger.WithField("error", err).Errorf("failed to delete blob %d during compensation", o.ID)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		go func(f *File) {
			defer wg.Done()
			obj, err := co.processFile(ctx, ownerID, f, claim)
			if err != nil {
				logger.WithField("error", err).Errorf("process upload error: %s", f.Name)
				return
			}
			if obj == nil { // dedup skip
				return
			}
			mu.Lock()
			uploaded = append(uploaded, *obj)
			mu.Unlock()
		}(&files[i])
	}
	wg.Wait()

	mu.Lock()
	objs := make([]biz.CdnObject, len(uploaded))
	copy(objs, uploaded)
	mu.Unlock()

	for i := range objs {
		objs[i].Flags = biz.InitialFlags(objs[i].ContentType)
		if objs[i].Flags&biz.FlagSearchable != 0 {
			logger.Debugf("object %d is searchable", objs[i].ID)
		}
	}

	if len(objs) > 0 {
		if err := co.Catalog.CreateObjects(ctx, objs); err != nil {
			return nil, errors.Wrap(err, "commit catalog batch")
		}
	}
	committed = true

	logger.Infof("created %d cdn objects, elapsed: %s", len(objs), time.Since(start))
	return objs, nil
}

// processFile hashes, dedup-checks and uploads one file. Returns
// (nil, nil) when the content already exists for the owner or is
// claimed by a sibling in the same batch.
func (co *Coordinator) processFile(ctx context.Context, ownerID int64, f *File, claim func(string) bool) (*biz.CdnObject, error) {
	logger := logx.LoggerWith(ctx, xlog)

	tmpDir := co.TmpDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	tmp, err := os.CreateTemp(tmpDir, "ingest-*")
	if err != nil {
		return nil, errors.Wrap(err, "create spool file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	defer tmp.Close()

	// hash and spool in a single pass over the stream
	hash, _, err := hashx.SumTo(tmp, f.Content)
	if err != nil {
		return nil, errors.Wrap(err, "hash content")
	}

	if !claim(hash) {
		logger.Debugf("skipping hash %s, claimed by a sibling upload", hash)
		return nil, nil
	}
	exists, err := co.Catalog.FindByHash(ctx, ownerID, hash)
	if err != nil {
		return nil, errors.Wrap(err, "dedup lookup")
	}
	if exists {
		logger.Debugf("skipping hash %s, it already exists", hash)
		return nil, nil
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := snowflake.SnowflakeId()
	size, err := co.Blobs.Put(ctx, ownerID, id, tmp, contentType)
	if err != nil {
		return nil, errors.Wrap(err, "upload blob")
	}

	fileName := f.Name
	if fileName == "" {
		fileName = fmt.Sprintf("%x_no_file_name", id)
	}
	return &biz.CdnObject{
		ID:          id,
		OwnerID:     ownerID,
		ContentType: contentType,
		ContentSize: size,
		FileName:    fileName,
		ContentHash: hash,
	}, nil
}

// Delete removes the catalog rows first, then the blobs best-effort. A
// stray blob with no catalog row is tolerated and never surfaced.
func (co *Coordinator) Delete(ctx context.Context, ownerID int64, objectIDs []int64) error {
	ctx = context.WithoutCancel(ctx)
	logger := logx.LoggerWith(ctx, xlog)

	if err := co.Catalog.Delete(ctx, ownerID, objectIDs); err != nil {
		return errors.Wrap(err, "delete catalog rows")
	}
	for _, id := range objectIDs {
		if err := co.Blobs.Delete(ctx, ownerID, id); err != nil && !errors.Is(err, blob.ErrNotFound) {
			logger.WithField("error", err).Errorf("failed to delete blob %d", id)
		}
	}
	return nil
}
