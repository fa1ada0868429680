package detector

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Classification is the result of comparing a file against its stored
// fingerprint.
type Classification int

const (
	New Classification = iota
	Modified
	Unchanged
)

func (c Classification) String() string {
	switch c {
	case New:
		return "new"
	case Modified:
		return "modified"
	default:
		return "unchanged"
	}
}

// fingerprint block size; memory use stays flat regardless of file size
const blockSize = 64 * 1024

// Fingerprint computes a sha256 content hash by streaming the file in fixed
// size blocks. Returns an error if the file disappears or turns unreadable
// mid-read; callers must not index a half-read file.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Classify compares the file's current fingerprint against a previously
// stored one. An empty knownHash means the file has never been seen.
func Classify(path, knownHash string) (Classification, string, error) {
	hash, err := Fingerprint(path)
	if err != nil {
		return Unchanged, "", err
	}
	if knownHash == "" {
		return New, hash, nil
	}
	if hash != knownHash {
		return Modified, hash, nil
	}
	return Unchanged, hash, nil
}
