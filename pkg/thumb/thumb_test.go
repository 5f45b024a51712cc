package thumb

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkersh/linkersh-cdn/pkg/blob"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8((x * y) % 256), B: uint8(x % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	fs, err := blob.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	return NewCache(fs)
}

func TestGetMissThenHit(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	original := encodePNG(t, 1024, 512)

	var fetches atomic.Int32
	fetch := func(ctx context.Context) ([]byte, error) {
		fetches.Add(1)
		return original, nil
	}

	first, err := c.Get(ctx, 7, 1001, fetch)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, int32(1), fetches.Load())

	// output is jpeg, fit into the 256 box with aspect preserved
	cfg, format, err := image.DecodeConfig(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 256, cfg.Width)
	assert.Equal(t, 128, cfg.Height)

	// second call: byte-identical, no fetch, no re-render
	second, err := c.Get(ctx, 7, 1001, fetch)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestGetNonImageWritesNothing(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, err := c.Get(ctx, 7, 1002, func(ctx context.Context) ([]byte, error) {
		return []byte("not an image"), nil
	})
	require.Error(t, err)

	// no cache entry was persisted
	_, err = c.Blobs.GetThumb(ctx, 7, 1002)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestGetFetchErrorPropagates(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, err := c.Get(ctx, 7, 1003, func(ctx context.Context) ([]byte, error) {
		return nil, blob.ErrNotFound
	})
	require.ErrorIs(t, err, blob.ErrNotFound)
}

func TestConcurrentGetsCollapse(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	original := encodePNG(t, 300, 300)

	var fetches atomic.Int32
	fetch := func(ctx context.Context) ([]byte, error) {
		fetches.Add(1)
		return original, nil
	}

	const n = 8
	results := make([][]byte, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := c.Get(ctx, 7, 1004, fetch)
			if err != nil {
				t.Errorf("get[%d] err=%v", i, err)
				return
			}
			results[i] = out
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, results[0], results[i])
	}
	// singleflight may let a couple of flights through on unlucky
	// scheduling, but nowhere near one per caller
	assert.LessOrEqual(t, fetches.Load(), int32(2))
}

func TestSmallImageIsScaledUpToBox(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	original := encodePNG(t, 64, 32)

	out, err := c.Get(ctx, 7, 1005, func(ctx context.Context) ([]byte, error) {
		return original, nil
	})
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Width)
	assert.Equal(t, 128, cfg.Height)
}
