// Package checksum verifies downloads against the md5Checksum Drive reports.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// Verifier hashes content while it streams through Read
// so a download is checked without a second pass over the file
type Verifier struct {
	reader   io.Reader
	hash     hash.Hash
	expected string
	read     int64
}

// NewVerifier wraps r; expectedMD5 is the hex digest to compare against
// An empty expectedMD5 disables the comparison (Drive omits it for some files)
func NewVerifier(r io.Reader, expectedMD5 string) *Verifier {
	return &Verifier{
		reader:   r,
		hash:     md5.New(),
		expected: strings.ToLower(strings.TrimSpace(expectedMD5)),
	}
}

// Read implements io.Reader
func (v *Verifier) Read(p []byte) (int, error) {
	n, err := v.reader.Read(p)
	if n > 0 {
		v.hash.Write(p[:n])
		v.read += int64(n)
	}
	return n, err
}

// Sum returns the hex digest of everything read so far
func (v *Verifier) Sum() string {
	return hex.EncodeToString(v.hash.Sum(nil))
}

// BytesRead returns the number of bytes that passed through
func (v *Verifier) BytesRead() int64 {
	return v.read
}

// Verify compares the digest with the expected value
// Returns an error wrapping domain.ErrChecksumMismatch on mismatch
func (v *Verifier) Verify() error {
	if v.expected == "" {
		return nil
	}
	if got := v.Sum(); got != v.expected {
		return fmt.Errorf("%w: got %s, want %s", domain.ErrChecksumMismatch, got, v.expected)
	}
	return nil
}
