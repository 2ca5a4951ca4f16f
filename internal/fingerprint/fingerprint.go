// Package fingerprint computes the content hashes used for duplicate
// detection: one over the raw file bytes, one over the extracted text.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/myckhel/course-pilot/internal/models"
)

// hashBlockSize bounds memory while hashing arbitrarily large uploads
const hashBlockSize = 4096

// HashFile computes the SHA-256 of the raw file bytes, streamed in fixed
// blocks so a large upload is never held in memory whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashBlockSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file for hashing: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashContent computes the SHA-256 of the UTF-8 encoding of text
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// HashChunks hashes the concatenation of chunk contents joined by "\n".
// The content hash is always computed post-chunking so the same extracted
// text always fingerprints identically regardless of the source container.
func HashChunks(chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return HashContent(strings.Join(parts, "\n"))
}
