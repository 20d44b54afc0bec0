package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// record is the on-disk layout. Keys mirror the settings names used by the
// hosting site so an operator can read the file directly.
type record struct {
	AccessToken    string `yaml:"access_token,omitempty"`
	TokenExpires   int64  `yaml:"token_expires,omitempty"`
	KeyFingerprint string `yaml:"key_fingerprint,omitempty"`
}

// FileStore persists token state as a small YAML file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the stored state. A missing file yields an empty state.
func (f *FileStore) Load(ctx context.Context) (State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to read token store: %w", err)
	}

	var rec record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return State{}, fmt.Errorf("failed to parse token store %s: %w", f.path, err)
	}

	state := State{
		AccessToken:    rec.AccessToken,
		KeyFingerprint: rec.KeyFingerprint,
	}
	if rec.TokenExpires > 0 {
		state.ExpiresAt = time.Unix(rec.TokenExpires, 0)
	}
	// A token without an expiry is unusable.
	if state.AccessToken != "" && state.ExpiresAt.IsZero() {
		state.AccessToken = ""
	}
	return state, nil
}

// Save writes state atomically (temp file + rename) with 0600 permissions.
func (f *FileStore) Save(ctx context.Context, state State) error {
	rec := record{
		AccessToken:    state.AccessToken,
		KeyFingerprint: state.KeyFingerprint,
	}
	if !state.ExpiresAt.IsZero() {
		rec.TokenExpires = state.ExpiresAt.Unix()
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode token store: %w", err)
	}
	return f.write(data)
}

// Clear removes the token and expiry but keeps the file in place.
func (f *FileStore) Clear(ctx context.Context) error {
	data, err := yaml.Marshal(record{})
	if err != nil {
		return fmt.Errorf("failed to encode token store: %w", err)
	}
	return f.write(data)
}

func (f *FileStore) write(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set token store permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token store: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace token store: %w", err)
	}
	return nil
}
