// Package document stores plain-text documents as files in a single directory.
package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

const ext = ".txt"

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidName = errors.New("document name is required")
)

// unsafeChars matches everything a file name may not contain.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeName maps an arbitrary name onto the file-safe alphabet.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Document is a loaded document.
type Document struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Info describes a stored document without its content.
type Info struct {
	Name     string `json:"name"`
	FullName string `json:"fullName"`
}

// Store is NOT safe for multiple instances sharing the same directory.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory documents are stored in.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) (string, string, error) {
	if strings.TrimSpace(name) == "" {
		return "", "", ErrInvalidName
	}
	safe := SanitizeName(name)
	return safe, filepath.Join(s.dir, safe+ext), nil
}

func (s *Store) Save(ctx context.Context, name, content string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	safe, path, err := s.path(name)
	if err != nil {
		return Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return Document{}, err
	}
	return Document{Name: safe, Content: content, UpdatedAt: time.Now()}, nil
}

func (s *Store) Load(ctx context.Context, name string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	safe, path, err := s.path(name)
	if err != nil {
		return Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}

	var updatedAt time.Time
	if fi, err := os.Stat(path); err == nil {
		updatedAt = fi.ModTime()
	}
	return Document{Name: safe, Content: string(data), UpdatedAt: updatedAt}, nil
}

// List returns all documents sorted by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	docs := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		docs = append(docs, Info{
			Name:     strings.TrimSuffix(e.Name(), ext),
			FullName: e.Name(),
		})
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Name < docs[j].Name
	})
	return docs, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, path, err := s.path(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
