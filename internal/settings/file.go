package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	KeyURL            = "WOOCOMMERCE_URL"
	KeyConsumerKey    = "WOOCOMMERCE_CONSUMER_KEY"
	KeyConsumerSecret = "WOOCOMMERCE_CONSUMER_SECRET"

	// Files written by older deployments carry this prefix.
	legacyPrefix = "VITE_"
)

// Persister reads and overwrites the durable credentials as a whole.
type Persister interface {
	Load() (Credentials, error)
	Save(Credentials) error
}

// FileStore keeps credentials in a line-oriented KEY=value file. Values are
// written verbatim without escaping.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns empty credentials when the file does not exist yet.
func (f *FileStore) Load() (Credentials, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read settings file: %w", err)
	}
	return parse(string(data)), nil
}

// Save replaces the file atomically: a temp file in the same directory is
// written, synced and renamed over the target.
func (f *FileStore) Save(c Credentials) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var b strings.Builder
	for _, fl := range c.fields() {
		b.WriteString(fl.key)
		b.WriteByte('=')
		b.WriteString(fl.value)
		b.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".settings-*")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod settings file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

func parse(data string) Credentials {
	var c Credentials
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if t := strings.TrimSpace(line); t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimPrefix(strings.TrimSpace(key), legacyPrefix) {
		case KeyURL:
			c.BaseURL = value
		case KeyConsumerKey:
			c.ConsumerKey = value
		case KeyConsumerSecret:
			c.ConsumerSecret = value
		}
	}
	return c
}
