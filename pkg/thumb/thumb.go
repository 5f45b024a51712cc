// Package thumb is the cache-aside thumbnail layer. Thumbnails are
// derived, disposable artifacts living in the blob store's thumb
// namespace; the catalog never references them. There is deliberately
// no invalidation: object ids are immutable, changed content means a
// new object id.
package thumb

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/linkersh/linkersh-cdn/pkg/blob"
	"github.com/linkersh/linkersh-cdn/pkg/logx"

	_ "image/gif"

	_ "golang.org/x/image/webp"
)

const (
	// fixed bounding box the source image is fit into, aspect preserved
	boundBox = 256
	// output quality of the final lossy encode
	jpegQuality = 70
	contentType = "image/jpeg"
)

var xlog = logrus.WithField("module", "thumb")

type Cache struct {
	Blobs blob.Store

	sf  singleflight.Group
	sem *semaphore.Weighted
}

func NewCache(blobs blob.Store) *Cache {
	return &Cache{
		Blobs: blobs,
		// the resize pipeline is CPU-bound; cap it so it cannot starve
		// I/O-bound request work
		sem: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Get returns the thumbnail for (ownerID, objectID), generating and
// persisting it from the original on a cache miss. fetchOriginal is only
// invoked on a miss. A non-image original fails without writing a cache
// entry; callers should surface that as "no thumbnail available".
func (c *Cache) Get(ctx context.Context, ownerID, objectID int64, fetchOriginal func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	logger := logx.LoggerWith(ctx, xlog)

	if data, err := c.Blobs.GetThumb(ctx, ownerID, objectID); err == nil {
		logger.Debugf("thumbnail cache hit for object %d", objectID)
		return data, nil
	} else if !errors.Is(err, blob.ErrNotFound) {
		// treat as a miss; regeneration is cheaper than failing the read
		logger.WithField("error", err).Warn("thumbnail cache read failed")
	}

	key := fmt.Sprintf("%d/%d", ownerID, objectID)
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		original, err := fetchOriginal(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "fetch original")
		}

		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		out, err := render(original)
		c.sem.Release(1)
		if err != nil {
			return nil, errors.Wrap(err, "render thumbnail")
		}

		if err := c.Blobs.PutThumb(ctx, ownerID, objectID, out, contentType); err != nil {
			return nil, errors.Wrap(err, "persist thumbnail")
		}
		logger.Debugf("created a thumbnail for object %d", objectID)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// render runs decode -> aspect-fit resize -> lossless intermediate ->
// lossy output. Deterministic for a given input.
func render(original []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, err
	}

	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("empty image")
	}
	scale := float64(boundBox) / float64(max(w, h))
	nw := max(int(float64(w)*scale), 1)
	nh := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	// lossless intermediate, then the lossy output encode
	var lossless bytes.Buffer
	encoder := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&lossless, dst); err != nil {
		return nil, err
	}
	flat, err := png.Decode(&lossless)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
