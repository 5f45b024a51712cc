// Package hashx produces content digests for dedup. SHA-256 is not here
// for adversarial collision resistance, only to detect accidental
// duplication with overwhelming probability.
package hashx

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

const bufSize = 32 * 1024

// Sum streams r through SHA-256 with a fixed-size buffer and returns the
// lowercase hex digest and the number of bytes read. I/O errors from r
// are returned as-is.
func Sum(r io.Reader) (hash string, size int64, err error) {
	h := sha256.New()
	n, err := io.CopyBuffer(h, r, make([]byte, bufSize))
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// SumTo is Sum with the raw bytes additionally copied to w, so callers
// can hash and spool in a single pass.
func SumTo(w io.Writer, r io.Reader) (hash string, size int64, err error) {
	return Sum(io.TeeReader(r, w))
}
