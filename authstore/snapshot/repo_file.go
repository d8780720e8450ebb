package snapshot

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-clinic-portal/internal/errors"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	hkdfInfo  = "clinic-portal auth snapshot v1"
)

// FileRepo stores each snapshot as a secretbox-sealed JSON file under a folder. File names are a
// hash of the key, so token subjects never appear on disk.
type FileRepo struct {
	folder string
	key    [32]byte
	mu     sync.Mutex
}

var _ Repo = (*FileRepo)(nil)

// NewFileRepo creates the folder if needed and derives the sealing key from secret.
func NewFileRepo(folder, secret string) (*FileRepo, error) {
	if secret == "" {
		return nil, fmt.Errorf("[snapshot NewFileRepo] a sealing secret is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, fmt.Errorf("[snapshot NewFileRepo] failed to create %s: %w", folder, err)
	}

	r := &FileRepo{folder: folder}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, r.key[:]); err != nil {
		return nil, fmt.Errorf("[snapshot NewFileRepo] failed to derive key: %w", err)
	}
	return r, nil
}

func (r *FileRepo) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(r.folder, hex.EncodeToString(sum[:])+".snap")
}

func (r *FileRepo) Upsert(key string, snapshot Snapshot) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	plain, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &r.key)

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp := r.path(key) + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp, r.path(key))
}

func (r *FileRepo) Get(key string) (Snapshot, error) {
	if key == "" {
		return Snapshot{}, fmt.Errorf("key is required")
	}

	r.mu.Lock()
	sealed, err := os.ReadFile(r.path(key))
	r.mu.Unlock()
	if os.IsNotExist(err) {
		return Snapshot{}, errors.ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(sealed) < nonceSize {
		return Snapshot{}, fmt.Errorf("snapshot file truncated")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &r.key)
	if !ok {
		return Snapshot{}, fmt.Errorf("snapshot failed authentication")
	}

	var snapshot Snapshot
	if err := json.Unmarshal(plain, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}

func (r *FileRepo) Delete(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
