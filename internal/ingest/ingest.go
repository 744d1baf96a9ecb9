// Package ingest registers files produced by a job: it hashes them, mirrors
// them to object storage when configured, and returns a provenance-tagged
// file handle ready to attach to a page.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lllllllleong/corpusocr/internal/models"
	"github.com/google/uuid"
)

// fileNamespace seeds the deterministic file keys so a re-run with the same
// job name overwrites the earlier artifact record.
var fileNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("corpusocr/files"))

// Uploader copies a local file to object storage and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectName string) (string, error)
}

// Ingestor processes local files into models.File handles.
type Ingestor struct {
	uploader Uploader
	root     string
	now      func() time.Time
}

// New returns an Ingestor. With a nil uploader files stay local only.
// Object names are the file path relative to root.
func New(uploader Uploader, root string) *Ingestor {
	return &Ingestor{uploader: uploader, root: root, now: time.Now}
}

// Process ingests the file at path with the given description and provenance.
func (i *Ingestor) Process(ctx context.Context, path, desc, provType, provID string) (*models.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	hash, err := calculateFileHash(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	ext := filepath.Ext(path)
	file := &models.File{
		Key:            FileKey(path),
		Path:           path,
		Basename:       filepath.Base(path),
		Extension:      strings.TrimPrefix(ext, "."),
		ByteSize:       info.Size(),
		Hash:           hash,
		Description:    desc,
		ProvenanceType: provType,
		ProvenanceID:   provID,
		CreatedAt:      i.now().UTC(),
	}

	if i.uploader != nil {
		uri, err := i.uploader.Upload(ctx, path, i.objectName(path))
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", path, err)
		}
		file.URI = uri
	}
	return file, nil
}

func (i *Ingestor) objectName(path string) string {
	if i.root != "" {
		if rel, err := filepath.Rel(i.root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(path), "/")
}

// FileKey is the stable key of the artifact stored at path.
func FileKey(path string) string {
	return uuid.NewSHA1(fileNamespace, []byte(filepath.Clean(path))).String()
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
