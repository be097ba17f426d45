package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// ErrCiphertextTooShort is returned when sealed data cannot contain a nonce.
var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

const credentialInfo = "conductor peer credential v1"

var (
	keyOnce   sync.Once
	sealKey   []byte
	keyErr    error
	keyPath   string
	keySource = "CONDUCTOR_MASTER_KEY"
)

// SetMasterKeyPath configures the file holding master key material. It must
// be called before the first Seal or Open.
func SetMasterKeyPath(path string) {
	keyPath = path
}

// loadKey derives the AES-256 key from, in order: the configured file, the
// CONDUCTOR_MASTER_KEY variable, or random bytes. Random keys do not survive a
// restart. Credentials sealed under an earlier key fail to open; the store
// then returns the peer with CredentialUnreadable set, runners are released
// and registered again to be re-claimed, and gateways or managers get a new
// credential through an update.
func loadKey() ([]byte, error) {
	var material []byte
	switch {
	case keyPath != "":
		data, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		material = data
	case os.Getenv(keySource) != "":
		material = []byte(os.Getenv(keySource))
	default:
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral master key: %w", err)
		}
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, material, nil, []byte(credentialInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive credential key: %w", err)
	}
	return key, nil
}

func newGCM() (cipher.AEAD, error) {
	keyOnce.Do(func() {
		sealKey, keyErr = loadKey()
	})
	if keyErr != nil {
		return nil, keyErr
	}

	block, err := aes.NewCipher(sealKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// SealCredential encrypts a peer credential with AES-256-GCM.
// Output layout: [nonce][ciphertext][tag].
func SealCredential(plaintext string) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// OpenCredential reverses SealCredential.
func OpenCredential(sealed []byte) (string, error) {
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	n := gcm.NonceSize()
	if len(sealed) < n {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := gcm.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

// ResetMasterKeyForTesting forgets the derived key. Tests only.
func ResetMasterKeyForTesting() {
	keyOnce = sync.Once{}
	sealKey = nil
	keyErr = nil
}
