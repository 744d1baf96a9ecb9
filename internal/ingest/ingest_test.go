package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type recordingUploader struct {
	objects []string
	err     error
}

func (u *recordingUploader) Upload(_ context.Context, _, objectName string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.objects = append(u.objects, objectName)
	return "gs://artifacts/" + objectName, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProcess_LocalOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	writeFile(t, path, "hello")

	f, err := New(nil, dir).Process(context.Background(), path, "Plain Text", "Google Cloud Vision OCR Job (x)", "job-1")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	// sha256("hello")
	if f.Hash != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Errorf("unexpected hash %s", f.Hash)
	}
	if f.ByteSize != 5 || f.Extension != "txt" || f.Basename != "out.txt" {
		t.Errorf("unexpected file %+v", f)
	}
	if f.Description != "Plain Text" || f.ProvenanceID != "job-1" {
		t.Errorf("unexpected provenance %+v", f)
	}
	if f.URI != "" {
		t.Errorf("expected no URI without an uploader, got %s", f.URI)
	}
}

func TestProcess_UploadsRelativeToRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pages", "4", "GCV-OCR_a_4.html")
	writeFile(t, path, "<html></html>")
	up := &recordingUploader{}

	f, err := New(up, dir).Process(context.Background(), path, "HTML", "p", "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(up.objects) != 1 || up.objects[0] != "pages/4/GCV-OCR_a_4.html" {
		t.Errorf("unexpected objects %v", up.objects)
	}
	if f.URI != "gs://artifacts/pages/4/GCV-OCR_a_4.html" {
		t.Errorf("unexpected URI %s", f.URI)
	}
}

func TestProcess_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(nil, dir).Process(context.Background(), filepath.Join(dir, "missing"), "", "", ""); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(dir, "a.json")
	writeFile(t, path, "{}")
	up := &recordingUploader{err: errors.New("bucket gone")}
	if _, err := New(up, dir).Process(context.Background(), path, "", "", ""); err == nil {
		t.Error("expected upload error")
	}
}

func TestFileKeyStable(t *testing.T) {
	if FileKey("/a/b/../b/c.txt") != FileKey("/a/b/c.txt") {
		t.Error("expected equal keys for equivalent paths")
	}
	if FileKey("/a/b/c.txt") == FileKey("/a/b/d.txt") {
		t.Error("expected different keys for different paths")
	}
}
