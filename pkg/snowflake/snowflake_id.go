package snowflake

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/linkersh/linkersh-cdn/pkg/env"
)

var node *snowflake.Node

// SnowflakeId generates a unique int64 id, safe for concurrent use.
func SnowflakeId() int64 {
	return node.Generate().Int64()
}

// IdDatetime recovers the creation time embedded in a snowflake id.
func IdDatetime(id int64) time.Time {
	ms := snowflake.ID(id).Time()
	return time.Unix(ms/1000, (ms%1000)*1000000)
}

func init() {
	// cluster host id
	hostID := env.Int("HOST_ID", 1)
	var err error
	node, err = snowflake.NewNode(int64(hostID))
	if err != nil {
		panic(err)
	}
}
