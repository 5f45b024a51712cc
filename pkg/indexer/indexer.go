// Package indexer is the background pipeline that turns searchable
// objects into full-text documents: fetch blob, OCR, upsert into the
// search index, then mark the row indexed. An object is picked up while
// SEARCHABLE is set and INDEXED is not; setting INDEXED last makes every
// step safely repeatable after a crash.
package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/linkersh/linkersh-cdn/biz"
	"github.com/linkersh/linkersh-cdn/pkg/blob"
	"github.com/linkersh/linkersh-cdn/pkg/logx"
	"github.com/linkersh/linkersh-cdn/pkg/ocr"
	"github.com/linkersh/linkersh-cdn/pkg/search"
)

var xlog = logrus.WithField("module", "indexer")

const (
	defaultSpec    = "@every 30s"
	defaultWorkers = 1
)

// Catalog is the slice of the metadata repository the scheduler needs.
type Catalog interface {
	SelectIndexable(ctx context.Context) ([]biz.CdnObject, error)
	OrFlags(ctx context.Context, objectID int64, bits int64) error
}

type Scheduler struct {
	Catalog Catalog
	Blobs   blob.Store
	OCR     ocr.Engine
	Search  search.Index

	// Spec is the cron spec for the sweep; "@every 30s" when empty.
	Spec string
	// Workers bounds concurrent OCR calls per sweep; 1 when zero.
	Workers int

	cron *cron.Cron
}

// Start schedules the periodic sweep. Overlapping runs are skipped, a
// panicking run is recovered; either way the next tick starts clean.
func (s *Scheduler) Start() error {
	spec := s.Spec
	if spec == "" {
		spec = defaultSpec
	}

	s.cron = cron.New(
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			xlog.WithField("error", err).Error("indexing sweep failed")
		}
	}); err != nil {
		return errors.Wrap(err, "schedule indexing sweep")
	}
	s.cron.Start()
	xlog.Infof("indexing sweep scheduled: %s", spec)
	return nil
}

// Stop stops the cron and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	xlog.Info("indexing sweep stopped")
}

// RunOnce performs one sweep over the current work set. A failing
// object is logged and left unindexed for the next sweep; it never
// takes its siblings down with it.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	logger := logx.LoggerWith(ctx, xlog)

	objs, err := s.Catalog.SelectIndexable(ctx)
	if err != nil {
		return errors.Wrap(err, "select indexable objects")
	}
	if len(objs) == 0 {
		return nil
	}
	start := time.Now()
	logger.Infof("indexing %d objects", len(objs))

	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var (
		wg   sync.WaitGroup
		jobs = make(chan biz.CdnObject)
		done int64
		mu   sync.Mutex
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for obj := range jobs {
				if err := s.indexObject(ctx, &obj); err != nil {
					logger.WithField("error", err).Errorf("failed to index object %d", obj.ID)
					continue
				}
				mu.Lock()
				done++
				mu.Unlock()
			}
		}()
	}
	for _, obj := range objs {
		jobs <- obj
	}
	close(jobs)
	wg.Wait()

	logger.Infof("indexed %d/%d objects, elapsed: %s", done, len(objs), time.Since(start))
	return nil
}

// indexObject runs the pipeline for one object. The INDEXED flag is set
// only after the document is durably in the search index.
func (s *Scheduler) indexObject(ctx context.Context, obj *biz.CdnObject) error {
	data, err := s.Blobs.Get(ctx, obj.OwnerID, obj.ID)
	if err != nil {
		return errors.Wrap(err, "fetch blob")
	}

	text, err := s.OCR.ExtractText(ctx, data)
	if err != nil {
		return errors.Wrap(err, "extract text")
	}
	// an image with no text still gets indexed; re-running OCR on it
	// every sweep buys nothing

	if err := s.Search.Upsert(ctx, search.Doc{
		ID:        obj.ID,
		OwnerID:   obj.OwnerID,
		Content:   text,
		CreatedAt: obj.UploadedAt,
	}); err != nil {
		return errors.Wrap(err, "upsert document")
	}

	return errors.Wrap(s.Catalog.OrFlags(ctx, obj.ID, biz.FlagIndexed), "mark indexed")
}
