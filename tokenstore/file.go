package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/api"
	"gopkg.in/yaml.v3"
)

// FileStore keeps the session in a YAML file readable only by its owner.
type FileStore struct {
	lock sync.Mutex
	path string
}

// NewFileStore returns a FileStore writing to path. The parent directory is
// created on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns <user config dir>/goauthclient/<profile>.yaml.
func DefaultPath(profile string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	if strings.ContainsAny(profile, `/\`) {
		return "", fmt.Errorf("invalid profile name: %q", profile)
	}
	return filepath.Join(dir, "goauthclient", profile+".yaml"), nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// Get implements [Store].
func (f *FileStore) Get(context.Context) (Persisted, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Persisted{}, false, nil
		}
		return Persisted{}, false, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Persisted{}, false, nil
	}

	var p Persisted
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persisted{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if p.Token == "" {
		return Persisted{}, false, nil
	}
	return p, true, nil
}

// Set implements [Store]. The file is replaced atomically.
func (f *FileStore) Set(_ context.Context, token string, user *api.User) error {
	if token == "" {
		return errors.New("empty token")
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(Persisted{Token: token, User: user, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Clear implements [Store].
func (f *FileStore) Clear(context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
