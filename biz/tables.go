package biz

import (
	"time"
)

// CdnObject is the catalog row for one stored blob.
// (owner_id, content_hash) is unique among live rows; concurrent uploads
// of identical content may briefly race past the dedup check, which is
// accepted (see docs/ddl/cdn-objects.sql).
type CdnObject struct {
	ID          int64     `xorm:"bigint not null pk 'id'"                      json:"id,string"`
	OwnerID     int64     `xorm:"bigint not null index 'owner_id'"             json:"owner_id,string"`
	ContentType string    `xorm:"varchar(128) not null 'content_type'"         json:"content_type"`
	ContentSize int64     `xorm:"bigint not null 'content_size'"               json:"content_size"`
	FileName    string    `xorm:"varchar(255) not null 'file_name'"            json:"file_name"`
	ContentHash string    `xorm:"char(64) not null index 'content_hash'"       json:"content_hash"` // SHA-256 hex
	Slug        string    `xorm:"varchar(32) not null default '' 'slug'"       json:"slug"`         // set on publish, immutable after
	IsPublic    bool      `xorm:"bool not null default false 'is_public'"      json:"is_public"`
	Flags       int64     `xorm:"bigint not null default 0 'flags'"            json:"flags"` // bits are only ever added
	UploadedAt  time.Time `xorm:"created 'uploaded_at'"                        json:"uploaded_at"`
}

func (o *CdnObject) TableName() string { return "cdn_objects" }
