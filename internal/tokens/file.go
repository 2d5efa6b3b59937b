package tokens

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultFilePath = "~/.config/ticketbook/tokens.toml"

// DefaultFilePath returns the default token file location.
func DefaultFilePath() string {
	return defaultFilePath
}

type tokenFile struct {
	Tokens map[string]string `toml:"tokens"`
}

// FileStorage keeps tokens in a TOML file readable only by the owner. A
// missing or unreadable file reads as empty.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage stores tokens at path, or the default path when empty.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.load()[key]
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *FileStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens := s.load()
	tokens[key] = value
	return s.save(tokens)
}

func (s *FileStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens := s.load()
	if _, ok := tokens[key]; !ok {
		return nil
	}
	delete(tokens, key)
	return s.save(tokens)
}

func (s *FileStorage) Close() error { return nil }

func (s *FileStorage) load() map[string]string {
	tokens := map[string]string{}
	resolved, err := resolvePath(s.path)
	if err != nil {
		return tokens
	}
	bytes, err := os.ReadFile(resolved)
	if err != nil {
		return tokens // Graceful degradation
	}
	var f tokenFile
	if err := toml.Unmarshal(bytes, &f); err != nil {
		return tokens
	}
	for k, v := range f.Tokens {
		tokens[k] = v
	}
	return tokens
}

func (s *FileStorage) save(tokens map[string]string) error {
	resolved, err := resolvePath(s.path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	bytes, err := toml.Marshal(tokenFile{Tokens: tokens})
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write tokens: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(resolved, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("chmod tokens: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultFilePath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
