package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/morozRed/deflink/internal/ignore"
)

func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil))[:16], nil
}

// HashString hashes in-memory content the same way HashFile hashes files.
func HashString(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// HasExtension reports whether path ends in one of extensions, ignoring case.
func HasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range extensions {
		if ext == strings.ToLower(candidate) {
			return true
		}
	}
	return false
}

// ScanFileHashes walks rootPath and hashes every document with one of the
// given extensions. Keys are slash-separated paths relative to rootPath.
func ScanFileHashes(rootPath string, extensions []string, ignoreRules []string) (map[string]string, error) {
	hashes := make(map[string]string)
	ignoreMatcher := ignore.NewMatcher(ignoreRules)

	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		if ignoreMatcher.ShouldIgnore(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if !HasExtension(path, extensions) {
			return nil
		}

		hash, err := HashFile(path)
		if err != nil {
			return err
		}
		hashes[filepath.ToSlash(relPath)] = hash

		return nil
	})

	return hashes, err
}
