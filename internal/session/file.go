package session

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/and161185/bookshelf/internal/model"
)

const (
	sessionFile = "session.bin"
	keyFile     = "session.key"
	keyLen      = chacha20poly1305.KeySize
)

var sessionAAD = []byte("bookshelf-session-v1")

// ErrCorrupted reports a session file that cannot be opened or decoded.
var ErrCorrupted = errors.New("session file corrupted")

// DefaultDir returns $XDG_CONFIG_HOME/bookshelf or ~/.config/bookshelf.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "bookshelf")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bookshelf")
}

// FileStore persists the session under dir, sealed with XChaCha20-Poly1305
// using a random local key kept next to it.
type FileStore struct {
	dir string
}

// NewFileStore constructs a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

func (f *FileStore) sessionPath() string { return filepath.Join(f.dir, sessionFile) }
func (f *FileStore) keyPath() string     { return filepath.Join(f.dir, keyFile) }

type fileToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        struct {
		UserID string   `json:"user_id"`
		Name   string   `json:"name"`
		Roles  []string `json:"roles"`
	} `json:"user"`
}

// Save seals tok and writes it atomically.
func (f *FileStore) Save(tok model.UserToken) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}
	key, err := f.loadOrCreateKey()
	if err != nil {
		return err
	}

	var ft fileToken
	ft.AccessToken, ft.ExpiresAt = tok.Token, tok.ExpiresAt
	ft.User.UserID, ft.User.Name, ft.User.Roles = tok.User.ID.String(), tok.User.Name, tok.User.Roles
	plain, err := json.Marshal(ft)
	if err != nil {
		return err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	sealed := aead.Seal(nonce, nonce, plain, sessionAAD)

	tmp := f.sessionPath() + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.sessionPath())
}

// Load opens the stored session.
func (f *FileStore) Load() (model.UserToken, error) {
	sealed, err := os.ReadFile(f.sessionPath())
	if err != nil {
		return model.UserToken{}, err
	}
	key, err := os.ReadFile(f.keyPath())
	if err != nil || len(key) != keyLen {
		return model.UserToken{}, fmt.Errorf("%w: missing key", ErrCorrupted)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return model.UserToken{}, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return model.UserToken{}, fmt.Errorf("%w: short file", ErrCorrupted)
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, sessionAAD)
	if err != nil {
		return model.UserToken{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	var ft fileToken
	if err := json.Unmarshal(plain, &ft); err != nil {
		return model.UserToken{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	uid, err := uuid.FromString(ft.User.UserID)
	if err != nil {
		return model.UserToken{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return model.UserToken{
		Token:     ft.AccessToken,
		ExpiresAt: ft.ExpiresAt,
		User:      model.AuthUser{ID: uid, Name: ft.User.Name, Roles: ft.User.Roles},
	}, nil
}

// Remove deletes the stored session. The local key is kept.
func (f *FileStore) Remove() error {
	return os.Remove(f.sessionPath())
}

func (f *FileStore) loadOrCreateKey() ([]byte, error) {
	key, err := os.ReadFile(f.keyPath())
	if err == nil && len(key) == keyLen {
		return key, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	key = make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.WriteFile(f.keyPath(), key, 0o600); err != nil {
		return nil, err
	}
	return key, nil
}
