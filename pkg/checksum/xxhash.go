package checksum

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Sum digests an uploaded file's content. The digest is recorded on the
// upload ledger so an admin can spot a re-submitted file.
func Sum(r io.Reader) (string, error) {
	hasher := xxhash.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// SumBytes digests content already held in memory.
func SumBytes(content []byte) string {
	digest := xxhash.New()
	digest.Write(content)
	return hex.EncodeToString(digest.Sum(nil))
}
