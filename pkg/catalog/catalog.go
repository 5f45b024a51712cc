// Package catalog is the transactional metadata repository for
// cdn_objects. It is the only component allowed to commit multi-row
// batches; everything else goes through single-row reads and atomic
// flag updates.
package catalog

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/linkersh/linkersh-cdn/biz"
	"github.com/linkersh/linkersh-cdn/pkg/orm"
)

var (
	ErrNotFound      = errors.New("catalog: object not found")
	ErrAlreadyPublic = errors.New("catalog: object is already public")
)

type Catalog struct{}

func New() *Catalog { return &Catalog{} }

// FindByHash reports whether a live object with this content hash
// already exists for the owner.
func (c *Catalog) FindByHash(ctx context.Context, ownerID int64, hash string) (bool, error) {
	sess := orm.MustSession(ctx)
	defer sess.Close()

	return sess.Where("owner_id = ? AND content_hash = ?", ownerID, hash).Exist(&biz.CdnObject{})
}

// CreateObjects inserts the batch in one transaction: either every row
// becomes visible or none does.
func (c *Catalog) CreateObjects(ctx context.Context, objs []biz.CdnObject) error {
	if len(objs) == 0 {
		return nil
	}
	// rows in one batch belong to one owner; a mismatch is a programming
	// error and must fail loudly, not half-commit
	owner := objs[0].OwnerID
	for i := range objs {
		if objs[i].ID == 0 || objs[i].OwnerID != owner {
			return errors.Errorf("invariant violated: bad row id=%d owner=%d want owner=%d",
				objs[i].ID, objs[i].OwnerID, owner)
		}
	}

	sess := orm.MustSession(ctx)
	defer sess.Close()

	if err := sess.Begin(); err != nil {
		return errors.Wrap(err, "begin")
	}
	for i := range objs {
		if _, err := sess.Insert(&objs[i]); err != nil {
			_ = sess.Rollback()
			return errors.Wrapf(err, "insert object %d", objs[i].ID)
		}
	}
	return errors.Wrap(sess.Commit(), "commit")
}

// OrFlags atomically ORs bits onto the object's flags. Flags only ever
// grow; there is no clearing counterpart.
func (c *Catalog) OrFlags(ctx context.Context, objectID int64, bits int64) error {
	sess := orm.MustSession(ctx)
	defer sess.Close()

	_, err := sess.Exec("UPDATE cdn_objects SET flags = flags | ? WHERE id = ?", bits, objectID)
	return err
}

// SelectIndexable returns all rows with SEARCHABLE set and INDEXED
// unset, i.e. the scheduler's work set.
func (c *Catalog) SelectIndexable(ctx context.Context) ([]biz.CdnObject, error) {
	sess := orm.MustSession(ctx)
	defer sess.Close()

	var objs []biz.CdnObject
	err := sess.Where("(flags & ?) = ? AND (flags & ?) = 0",
		biz.FlagSearchable, biz.FlagSearchable, biz.FlagIndexed).Find(&objs)
	return objs, err
}

func (c *Catalog) Get(ctx context.Context, ownerID, objectID int64) (*biz.CdnObject, error) {
	sess := orm.MustSession(ctx)
	defer sess.Close()

	var obj biz.CdnObject
	ok, err := sess.Where("owner_id = ? AND id = ?", ownerID, objectID).Get(&obj)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return &obj, nil
}

func (c *Catalog) GetBySlug(ctx context.Context, slug string) (*biz.CdnObject, error) {
	sess := orm.MustSession(ctx)
	defer sess.Close()

	var obj biz.CdnObject
	ok, err := sess.Where("slug = ? AND is_public = ?", slug, true).Get(&obj)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return &obj, nil
}

// List returns the owner's objects, newest first.
func (c *Catalog) List(ctx context.Context, ownerID int64, limit, skip int) ([]biz.CdnObject, error) {
	sess := orm.MustSession(ctx)
	defer sess.Close()

	var objs []biz.CdnObject
	err := sess.Where("owner_id = ?", ownerID).
		Desc("uploaded_at").Limit(limit, skip).Find(&objs)
	return objs, err
}

func (c *Catalog) Delete(ctx context.Context, ownerID int64, objectIDs []int64) error {
	if len(objectIDs) == 0 {
		return nil
	}
	sess := orm.MustSession(ctx)
	defer sess.Close()

	_, err := sess.Where("owner_id = ?", ownerID).In("id", objectIDs).Delete(&biz.CdnObject{})
	return err
}

// Publish makes the object public under a slug derived from its id.
// The slug is immutable once set.
func (c *Catalog) Publish(ctx context.Context, ownerID, objectID int64) (*biz.CdnObject, error) {
	obj, err := c.Get(ctx, ownerID, objectID)
	if err != nil {
		return nil, err
	}
	if obj.IsPublic || obj.Slug != "" {
		return nil, ErrAlreadyPublic
	}

	slug := fmt.Sprintf("%x", objectID)

	sess := orm.MustSession(ctx)
	defer sess.Close()
	if _, err := sess.Exec(
		"UPDATE cdn_objects SET slug = ?, is_public = ? WHERE id = ?", slug, true, objectID); err != nil {
		return nil, err
	}

	obj.Slug = slug
	obj.IsPublic = true
	return obj, nil
}

// GetRanked returns the owner's rows for ids, preserving the given
// (relevance) order; ids with no row are skipped.
func (c *Catalog) GetRanked(ctx context.Context, ownerID int64, ids []int64) ([]biz.CdnObject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sess := orm.MustSession(ctx)
	defer sess.Close()

	var objs []biz.CdnObject
	if err := sess.Where("owner_id = ?", ownerID).In("id", ids).Find(&objs); err != nil {
		return nil, err
	}

	byID := make(map[int64]biz.CdnObject, len(objs))
	for _, o := range objs {
		byID[o.ID] = o
	}
	ranked := make([]biz.CdnObject, 0, len(objs))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			ranked = append(ranked, o)
		}
	}
	return ranked, nil
}
