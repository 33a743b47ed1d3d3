// Package blobstore keeps the source documents care plans are extracted from.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// MaxFileSize is the largest document accepted (50 MB).
const MaxFileSize = 50 << 20

// AllowedContentTypes lists the MIME types accepted for care-plan documents.
// Browsers commonly send PDFs as application/octet-stream.
var AllowedContentTypes = map[string]bool{
	"application/pdf":          true,
	"application/x-pdf":        true,
	"application/octet-stream": true,
}

// Metadata describes a stored blob.
type Metadata struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	PatientID   string    `json:"patient_id,omitempty"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the contract for blob backends.
type Store interface {
	Put(ctx context.Context, meta Metadata, content []byte) (*Metadata, error)
	Get(ctx context.Context, id string) (io.ReadCloser, *Metadata, error)
	Delete(ctx context.Context, id string) error
}

// prepare validates meta and fills in id, size, hash and timestamp.
func prepare(meta Metadata, content []byte) (Metadata, error) {
	if meta.FileName == "" {
		return meta, ErrMissingFileName
	}
	if meta.ContentType == "" {
		meta.ContentType = "application/octet-stream"
	}
	if !AllowedContentTypes[meta.ContentType] {
		return meta, fmt.Errorf("%w: %s", ErrInvalidContentType, meta.ContentType)
	}
	if len(content) > MaxFileSize {
		return meta, ErrFileTooLarge
	}

	sum := sha256.Sum256(content)
	meta.ID = uuid.NewString()
	meta.Size = int64(len(content))
	meta.Hash = hex.EncodeToString(sum[:])
	meta.CreatedAt = time.Now().UTC()
	return meta, nil
}

type storedBlob struct {
	metadata Metadata
	content  []byte
}

// InMemoryStore is a thread-safe Store for tests and development.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string]*storedBlob)}
}

func (s *InMemoryStore) Put(_ context.Context, meta Metadata, content []byte) (*Metadata, error) {
	meta, err := prepare(meta, content)
	if err != nil {
		return nil, err
	}

	data := make([]byte, len(content))
	copy(data, content)

	s.mu.Lock()
	s.blobs[meta.ID] = &storedBlob{metadata: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (io.ReadCloser, *Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[id]
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	meta := blob.metadata
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}

// DiskStore writes each blob to <dir>/<id> with its metadata in <dir>/<id>.json.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob directory %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) path(id string) string {
	return filepath.Join(s.dir, filepath.Base(id))
}

func (s *DiskStore) Put(_ context.Context, meta Metadata, content []byte) (*Metadata, error) {
	meta, err := prepare(meta, content)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(s.path(meta.ID), content, 0o640); err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode blob metadata: %w", err)
	}
	if err := os.WriteFile(s.path(meta.ID)+".json", encoded, 0o640); err != nil {
		os.Remove(s.path(meta.ID))
		return nil, fmt.Errorf("write blob metadata: %w", err)
	}
	return &meta, nil
}

func (s *DiskStore) Get(_ context.Context, id string) (io.ReadCloser, *Metadata, error) {
	raw, err := os.ReadFile(s.path(id) + ".json")
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read blob metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode blob metadata: %w", err)
	}

	f, err := os.Open(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	return f, &meta, nil
}

func (s *DiskStore) Delete(_ context.Context, id string) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrBlobNotFound
	}
	if err != nil {
		return fmt.Errorf("remove blob: %w", err)
	}
	_ = os.Remove(s.path(id) + ".json")
	return nil
}
