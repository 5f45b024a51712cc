package biz

import (
	"github.com/linkersh/linkersh-cdn/pkg/orm"
)

// InitDB syncs catalog models onto the configured engine. Production
// schemas are created from docs/ddl instead; Sync keeps dev and test
// databases in shape.
func InitDB() {
	if err := orm.MustDB().Sync(new(CdnObject)); err != nil {
		panic(err)
	}
}
