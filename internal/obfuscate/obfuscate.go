// Package obfuscate provides a reversible, deterministic transform of
// workspace paths so the remote indexing service never sees real file
// locations while the local process can always map results back.
//
// The transform is AES-256-GCM with a synthetic nonce derived from an
// HMAC of the path under the same secret. Deriving the nonce from the
// input makes encryption deterministic: the same absolute path always
// produces the same token, which the remote side relies on for chunk
// deduplication, and decryption recovers the exact normalized path.
package obfuscate

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/driftdex/driftdex/pkg/types"
)

const (
	// KeySize is the symmetric secret length (AES-256).
	KeySize = 32

	nonceSize = 12 // standard GCM nonce
)

// Obfuscator encodes and decodes paths under one symmetric secret.
// Safe for concurrent use.
type Obfuscator struct {
	aead       cipher.AEAD
	key        []byte
	persistent bool
}

// New creates an Obfuscator from a raw secret. The persistent flag
// records whether the secret survives restarts; tokens from a
// non-persistent secret are only stable for the process lifetime.
func New(secret []byte, persistent bool) (*Obfuscator, error) {
	if len(secret) != KeySize {
		return nil, fmt.Errorf("secret must be %d bytes, got %d", KeySize, len(secret))
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	key := make([]byte, KeySize)
	copy(key, secret)
	return &Obfuscator{aead: aead, key: key, persistent: persistent}, nil
}

// NewFromFile loads or creates the secret at path and builds an
// Obfuscator from it. When the secret cannot be persisted (read-only
// home, permission trouble) it degrades to a process-lifetime in-memory
// secret with a warning: obfuscation stays internally consistent but
// tokens change across restarts.
func NewFromFile(path string, logger *slog.Logger) (*Obfuscator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	secret, err := LoadOrCreateSecret(path)
	if err == nil {
		return New(secret, true)
	}
	logger.Warn("cannot persist obfuscation secret, using in-memory secret", "path", path, "error", err)

	secret = make([]byte, KeySize)
	if _, randErr := rand.Read(secret); randErr != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrNoSecret, randErr)
	}
	return New(secret, false)
}

// DefaultSecretPath returns the fixed per-user secret location.
func DefaultSecretPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".driftdex", "secret.key"), nil
}

// LoadOrCreateSecret reads the hex-encoded secret at path, generating
// and writing a fresh one when the file does not exist. Creation uses
// O_EXCL so two processes initializing concurrently converge on a single
// key: the loser of the race re-reads the winner's file.
func LoadOrCreateSecret(path string) ([]byte, error) {
	if secret, err := readSecretFile(path); err == nil {
		return secret, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	secret := make([]byte, KeySize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create secret directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		// Lost the creation race; the other process's key wins.
		return readSecretFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("create secret file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write([]byte(hex.EncodeToString(secret))); err != nil {
		return nil, fmt.Errorf("write secret file: %w", err)
	}
	return secret, nil
}

func readSecretFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	secret, err := hex.DecodeString(string(content))
	if err != nil || len(secret) != KeySize {
		return nil, fmt.Errorf("secret file %s is corrupt", path)
	}
	return secret, nil
}

// Persistent reports whether tokens are stable across restarts.
func (o *Obfuscator) Persistent() bool {
	return o.persistent
}

// Obfuscate encodes an absolute path as an opaque URL-safe token.
// Separators are normalized to forward slashes first, so the same
// logical path tokenizes identically across platforms.
func (o *Obfuscator) Obfuscate(absPath string) string {
	normalized := filepath.ToSlash(absPath)
	nonce := o.deriveNonce(normalized)
	sealed := o.aead.Seal(nil, nonce, []byte(normalized), nil)

	token := make([]byte, 0, nonceSize+len(sealed))
	token = append(token, nonce...)
	token = append(token, sealed...)
	return base64.RawURLEncoding.EncodeToString(token)
}

// Deobfuscate decodes a token back to the normalized absolute path it
// was produced from. Tokens from a different secret, or tampered tokens,
// fail authentication.
func (o *Obfuscator) Deobfuscate(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("malformed token: %w", err)
	}
	if len(raw) <= nonceSize {
		return "", errors.New("malformed token: too short")
	}
	plain, err := o.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return string(plain), nil
}

// deriveNonce derives the synthetic GCM nonce from the path. Nonce reuse
// across distinct messages is what GCM forbids; deriving the nonce from
// the message itself reuses it only for identical plaintexts, which is
// exactly the determinism the token contract requires (SIV-style
// construction).
func (o *Obfuscator) deriveNonce(normalized string) []byte {
	mac := hmac.New(sha256.New, o.key)
	mac.Write([]byte("driftdex-path-nonce:"))
	mac.Write([]byte(normalized))
	return mac.Sum(nil)[:nonceSize]
}
