// Package secrets stores repository passwords and backend credentials in a
// single encrypted file, so profiles can reference them as "secret:<name>"
// instead of embedding them in configuration. The file is sealed with
// XChaCha20-Poly1305 under a key derived from a passphrase with Argon2id.
package secrets

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/napalu/restix/util"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrSecretNotFound is returned when the named secret is not stored.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrBadPassphrase is returned when the store cannot be decrypted,
	// which means a wrong passphrase or a corrupted file.
	ErrBadPassphrase = errors.New("cannot decrypt secret store")
)

// kdfParams pins the Argon2id parameters used for one store file. They are
// stored alongside the ciphertext so the key stays derivable when the
// defaults change.
type kdfParams struct {
	Salt    []byte `json:"salt"`
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"` // KiB
	Threads uint8  `json:"threads"`
}

// envelope is the on-disk format. A fresh nonce is generated on every save.
type envelope struct {
	KDF   kdfParams `json:"kdf"`
	Nonce []byte    `json:"nonce"`
	Data  []byte    `json:"data"`
}

func defaultKDF() (kdfParams, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return kdfParams{}, err
	}

	return kdfParams{Salt: salt, Time: 3, Memory: 64 * 1024, Threads: 4}, nil
}

func (k kdfParams) derive(passphrase []byte) []byte {
	return argon2.IDKey(passphrase, k.Salt, k.Time, k.Memory, k.Threads, chacha20poly1305.KeySize)
}

// Store is an unlocked secret store. Mutations persist immediately; the
// plaintext never touches disk.
type Store struct {
	path    string
	key     []byte
	kdf     kdfParams
	secrets map[string]string
}

// Open unlocks the store at path with the given passphrase. A missing file
// yields an empty store which is created on the first Set.
func Open(path string, passphrase []byte) (*Store, error) {
	store := &Store{path: path, secrets: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		kdf, err := defaultKDF()
		if err != nil {
			return nil, err
		}
		store.kdf = kdf
		store.key = kdf.derive(passphrase)

		return store, nil
	}
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s is not a secret store: %w", path, err)
	}

	store.kdf = env.KDF
	store.key = env.KDF.derive(passphrase)

	aead, err := chacha20poly1305.NewX(store.key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, env.Nonce, env.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadPassphrase, path)
	}
	if err := json.Unmarshal(plain, &store.secrets); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadPassphrase, path)
	}

	return store, nil
}

// OpenPrompt unlocks the store after soliciting the passphrase from the
// terminal without echoing it.
func OpenPrompt(path string, w io.Writer, t util.Terminal) (*Store, error) {
	passphrase, err := util.GetSecureString("secret store passphrase: ", w, t)
	if err != nil {
		return nil, err
	}

	return Open(path, []byte(passphrase))
}

// Get returns the named secret.
func (s *Store) Get(name string) (string, error) {
	value, ok := s.secrets[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}

	return value, nil
}

// Set stores the named secret and persists the store.
func (s *Store) Set(name, value string) error {
	s.secrets[name] = value

	return s.save()
}

// Delete removes the named secret and persists the store.
func (s *Store) Delete(name string) error {
	if _, ok := s.secrets[name]; !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	delete(s.secrets, name)

	return s.save()
}

// List returns the stored secret names in sorted order.
func (s *Store) List() []string {
	names := make([]string, 0, len(s.secrets))
	for name := range s.secrets {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}

// save seals the secrets under a fresh nonce and writes the envelope with
// owner-only permissions.
func (s *Store) save() error {
	plain, err := json.Marshal(s.secrets)
	if err != nil {
		return err
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	data, err := json.Marshal(envelope{
		KDF:   s.kdf,
		Nonce: nonce,
		Data:  aead.Seal(nil, nonce, plain, nil),
	})
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	return os.WriteFile(s.path, data, 0o600)
}
