// Package hasher computes document checksums.
package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// DefaultAlgo is the digest printed for uploaded and downloaded documents.
const DefaultAlgo = "sha256"

// HashAlgorithms lists the supported algorithm names.
var HashAlgorithms = []string{"md5", "sha1", "sha256", "sha512"}

var constructors = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// IsValidHashAlgo reports whether algo names a supported algorithm, in any case.
func IsValidHashAlgo(algo string) bool {
	_, ok := constructors[strings.ToLower(algo)]
	return ok
}

// HashReader returns the hex digest of everything read from r.
func HashReader(r io.Reader, algo string) (string, error) {
	newHash, ok := constructors[strings.ToLower(algo)]
	if !ok {
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
	h := newHash()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GenerateHash returns the hex digest of the file at filePath.
func GenerateHash(filePath, algo string) (string, error) {
	if !IsValidHashAlgo(algo) {
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return HashReader(f, algo)
}
