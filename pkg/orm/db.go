package orm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"xorm.io/xorm"

	"github.com/linkersh/linkersh-cdn/pkg/env"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx must go through database/sql
	_ "github.com/mattn/go-sqlite3"    // file:test.db?_busy_timeout=5000&_journal_mode=WAL
)

// engine1 as default engine
var engine1 *xorm.Engine

func InitDefaultDB() *xorm.Engine {
	return InitDB(env.MustString("DB_DRIVER"), env.MustString("DB_URL"))
}

func InitDB(dbDriver, dbUrl string) *xorm.Engine {
	if engine1 != nil {
		return engine1
	}
	engine, err := xorm.NewEngine(dbDriver, dbUrl)
	if err != nil {
		panic(fmt.Sprintf("open database failed: %v", err))
	}
	engine.SetMaxOpenConns(10)

	if _, err := engine.Query("select 1"); err != nil {
		panic(fmt.Sprintf("database ping failed: %v", err))
	}

	engine.ShowSQL(true)
	engine1 = engine
	return engine1
}

func MustDB() *xorm.Engine {
	if engine1 == nil {
		panic("orm not initialized")
	}
	return engine1
}

func NewSession() *xorm.Session {
	return MustDB().NewSession()
}

// MustSession returns a session bound to ctx; callers own Close.
func MustSession(ctx context.Context) *xorm.Session {
	// see: https://gitea.com/xorm/xorm/issues/1491
	session := MustDB().NewSession()
	session.Context(ctx)
	return session
}

func SetLogger(logger *logrus.Entry) {
	MustDB().SetLogger(NewXormLogrus(logger.WithField("module", "orm")))
}
