package hasher_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/b13-niass/esign/pkg/hasher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidHashAlgo(t *testing.T) {
	assert.True(t, hasher.IsValidHashAlgo("md5"))
	assert.True(t, hasher.IsValidHashAlgo("sha256"))
	assert.True(t, hasher.IsValidHashAlgo("SHA512"))
	assert.False(t, hasher.IsValidHashAlgo("md4"))
	assert.False(t, hasher.IsValidHashAlgo(""))
}

func TestGenerateHash(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "contrat.pdf")
	require.NoError(t, os.WriteFile(filePath, []byte("hello world"), 0o600))

	testCases := []struct {
		algo     string
		expected string
		wantErr  bool
	}{
		{"md5", "5eb63bbbe01eeed093cb22bb8f5acdc3", false},
		{"sha1", "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed", false},
		{"sha256", "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", false},
		{"invalid", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.algo, func(t *testing.T) {
			sum, err := hasher.GenerateHash(filePath, tc.algo)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sum)
		})
	}

	_, err := hasher.GenerateHash(filepath.Join(t.TempDir(), "absent.pdf"), hasher.DefaultAlgo)
	assert.Error(t, err)
}

func TestHashReader(t *testing.T) {
	sum, err := hasher.HashReader(strings.NewReader("hello world"), hasher.DefaultAlgo)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", sum)

	_, err = hasher.HashReader(strings.NewReader(""), "crc32")
	assert.Error(t, err)
}

func TestHashAlgorithmsAreSupported(t *testing.T) {
	for _, algo := range hasher.HashAlgorithms {
		assert.True(t, hasher.IsValidHashAlgo(algo), algo)
	}
	assert.Contains(t, hasher.HashAlgorithms, hasher.DefaultAlgo)
}
