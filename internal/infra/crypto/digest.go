package crypto

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// DefaultChunkSize is the window used when digesting large artifacts
// incrementally.
const DefaultChunkSize = 1 << 20

// SumHex returns the lowercase hex SHA-256 digest of data.
func SumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SumString returns the lowercase hex SHA-256 digest of s.
func SumString(s string) string {
	return SumHex([]byte(s))
}

// SumChunks digests each chunk independently and returns the per-chunk
// digests in order.
func SumChunks(chunks [][]byte) []string {
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		out[i] = SumHex(chunk)
	}
	return out
}

// StreamSum digests r in chunkSize windows, checking ctx between windows so
// a fired watchdog can abort a large-artifact hash cleanly. onProgress, when
// non-nil, is invoked after each window with the running byte count.
func StreamSum(ctx context.Context, r io.Reader, chunkSize int, onProgress func(written int64)) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	hasher := sha256.New()
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			written += int64(n)
			if onProgress != nil {
				onProgress(written)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
