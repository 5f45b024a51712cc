package testutil

import (
	"github.com/sirupsen/logrus"
	"xorm.io/xorm"

	"github.com/linkersh/linkersh-cdn/biz"
	"github.com/linkersh/linkersh-cdn/pkg/orm"
)

// test DSN: shared-cache memory DB so every pooled connection sees the
// same database; busy timeout guards the concurrent ingest tests
const testDSN = "file:cdntest?mode=memory&cache=shared&_busy_timeout=5000"

// UseTestDB initializes (once per process) a sqlite in-memory engine and
// the catalog models.
func UseTestDB() *xorm.Engine {
	db := orm.InitDB("sqlite3", testDSN)
	biz.InitDB()

	logrus.SetLevel(logrus.WarnLevel)
	orm.SetLogger(logrus.WithField("module", "ormtest"))
	return db
}

// ResetTestDB drops and re-creates the catalog tables.
func ResetTestDB() *xorm.Engine {
	db := UseTestDB()
	if _, err := db.Exec("DROP TABLE IF EXISTS cdn_objects"); err != nil {
		logrus.Fatalf("failed to reset test db: %v", err)
	}
	biz.InitDB()
	return db
}
