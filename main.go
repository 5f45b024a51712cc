package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/linkersh/linkersh-cdn/biz"
	"github.com/linkersh/linkersh-cdn/pkg/blob"
	"github.com/linkersh/linkersh-cdn/pkg/catalog"
	"github.com/linkersh/linkersh-cdn/pkg/env"
	"github.com/linkersh/linkersh-cdn/pkg/indexer"
	"github.com/linkersh/linkersh-cdn/pkg/log"
	"github.com/linkersh/linkersh-cdn/pkg/ocr"
	"github.com/linkersh/linkersh-cdn/pkg/orm"
	"github.com/linkersh/linkersh-cdn/pkg/search"
)

func main() {
	log.Init()

	initDB()

	blobs, err := blob.NewLocalFS(env.DirPath("S3_DIR", "./s3"))
	if err != nil {
		logrus.WithField("error", err).Fatal("init blob store")
	}

	index, err := search.NewMeili()
	if err != nil {
		logrus.WithField("error", err).Fatal("init search index")
	}

	sched := &indexer.Scheduler{
		Catalog: catalog.New(),
		Blobs:   blobs,
		OCR:     ocr.NewOpenAI(),
		Search:  index,
		Spec:    env.String("INDEX_EVERY", ""),
		Workers: env.Int("INDEX_WORKERS", 1),
	}
	if err := sched.Start(); err != nil {
		logrus.WithField("error", err).Fatal("start indexer")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down")
	sched.Stop()
}

func initDB() {
	orm.InitDefaultDB()
	biz.InitDB()
	orm.SetLogger(logrus.NewEntry(logrus.StandardLogger()))
}
