// Package keyring stores data-source passwords outside the catalog file.
// Catalog entries reference a secret as "keyring:<key>"; the plaintext lives
// in the system keyring, or in an AES-GCM encrypted file on headless hosts.
package keyring

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

// Reference prefix of catalog passwords stored in the keyring.
const Reference = "keyring:"

// DefaultService is the keyring service name entries are stored under.
const DefaultService = "redb-anchor"

// ErrNotFound is returned when a key has no stored secret.
var ErrNotFound = errors.New("secret not found in keyring")

// Store reads and writes secrets.
type Store interface {
	Set(key, secret string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// IsReference reports whether value points into the keyring.
func IsReference(value string) bool {
	return strings.HasPrefix(value, Reference)
}

// Ref builds the catalog reference for key.
func Ref(key string) string {
	return Reference + key
}

// Resolve returns value unchanged unless it is a keyring reference, in which
// case the stored secret is returned.
func Resolve(store Store, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	if store == nil {
		return "", fmt.Errorf("password references the keyring but no keyring is configured")
	}
	key := strings.TrimPrefix(value, Reference)
	secret, err := store.Get(key)
	if err != nil {
		return "", fmt.Errorf("failed to resolve keyring secret %q: %w", key, err)
	}
	return secret, nil
}

// SystemStore uses the operating system keyring.
type SystemStore struct {
	service string
}

// NewSystemStore creates a store on the OS keyring.
func NewSystemStore(service string) *SystemStore {
	return &SystemStore{service: service}
}

func (s *SystemStore) Set(key, secret string) error {
	return keyring.Set(s.service, key, secret)
}

func (s *SystemStore) Get(key string) (string, error) {
	secret, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return secret, err
}

func (s *SystemStore) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// FileStore keeps secrets in a JSON file, each value encrypted with AES-GCM
// under a key derived from the master password.
type FileStore struct {
	path      string
	masterKey []byte
	mu        sync.Mutex
}

// NewFileStore creates a file-backed store.
func NewFileStore(path, masterPassword string) *FileStore {
	hash := sha256.Sum256([]byte(masterPassword))
	return &FileStore{path: path, masterKey: hash[:]}
}

func (f *FileStore) load() (map[string]string, error) {
	entries := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring file: %w", err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse keyring file: %w", err)
	}
	return entries, nil
}

func (f *FileStore) save(entries map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create keyring directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileStore) Set(key, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	sealed, err := f.seal(secret)
	if err != nil {
		return err
	}
	entries[key] = sealed
	return f.save(entries)
}

func (f *FileStore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return "", err
	}
	sealed, ok := entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return f.open(sealed)
}

func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return f.save(entries)
}

func (f *FileStore) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(f.masterKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FileStore) seal(plaintext string) (string, error) {
	gcm, err := f.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (f *FileStore) open(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	gcm, err := f.gcm()
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, data[:gcm.NonceSize()], data[gcm.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret (wrong master password?): %w", err)
	}
	return string(plaintext), nil
}

// Open returns the system keyring when it answers within timeout, otherwise
// a FileStore at path.
func Open(ctx context.Context, service, path, masterPassword string, timeout time.Duration) Store {
	done := make(chan error, 1)
	go func() {
		check := service + "-check"
		err := keyring.Set(check, "check", "check")
		if err == nil {
			_ = keyring.Delete(check, "check")
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return NewSystemStore(service)
		}
	case <-time.After(timeout):
	case <-ctx.Done():
	}
	return NewFileStore(path, masterPassword)
}

// DefaultPath returns the default keyring file path
func DefaultPath() string {
	if path := os.Getenv("ANCHOR_KEYRING_PATH"); path != "" {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "redb-anchor-keyring.json")
	}
	return filepath.Join(homeDir, ".redb", "anchor", "keyring.json")
}
