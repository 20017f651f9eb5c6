package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DocumentStore persists per-document artifacts on disk.
//
// Layout under the base directory:
//
//	<documentID>/auditor/<category>-<random>.<ext>  compliance attachments
//	<documentID>/access.log                         plain-text access lines
//
// Attachment files are written once under a generated name and never
// rewritten; only the metadata row pointing at them changes.
type DocumentStore struct {
	baseDir string
}

// NewDocumentStore ensures the base directory exists and returns a handle.
func NewDocumentStore(baseDir string) (*DocumentStore, error) {
	if baseDir == "" {
		baseDir = "./documents"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create documents directory: %w", err)
	}
	return &DocumentStore{baseDir: baseDir}, nil
}

// SaveAttachment streams an uploaded compliance file into the document's
// auditor folder under a collision-resistant name and returns the path
// relative to the base directory.
func (s *DocumentStore) SaveAttachment(documentID, category, originalName string, r io.Reader) (string, error) {
	if documentID == "" || category == "" {
		return "", fmt.Errorf("documentID and category required")
	}
	dir := filepath.Join(s.baseDir, documentID, "auditor")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare auditor directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s%s", category, randomSuffix(), sanitizeExt(originalName))
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create attachment file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return filepath.Join(documentID, "auditor", name), nil
}

// Open returns a read-only handle for a stored file path relative to the base dir.
func (s *DocumentStore) Open(relPath string) (*os.File, error) {
	file, err := os.Open(s.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open document file: %w", err)
	}
	return file, nil
}

// AppendAccessLine appends one human-readable line to the document's access log.
func (s *DocumentStore) AppendAccessLine(documentID, line string) error {
	dir := filepath.Join(s.baseDir, documentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare document directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, "access.log"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open access log: %w", err)
	}
	defer file.Close() //nolint:errcheck
	stamp := time.Now().UTC().Format(time.RFC3339)
	if _, err := fmt.Fprintf(file, "%s %s\n", stamp, strings.TrimSpace(line)); err != nil {
		return fmt.Errorf("append access line: %w", err)
	}
	return nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *DocumentStore) Path(relPath string) string {
	return s.resolve(relPath)
}

func (s *DocumentStore) resolve(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(s.baseDir, relPath)
}

func randomSuffix() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
