package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// Crypter is the encrypt/decrypt capability injected into the store. The
// store never picks an algorithm itself.
type Crypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Key derivation salt. Fixed so the same passphrase reopens an existing
// store file across restarts.
var keySalt = []byte("unisoncomms/store/v1")

// AESCrypter implements Crypter with AES-GCM, key derived from a passphrase
// via scrypt.
type AESCrypter struct {
	gcm cipher.AEAD
}

// NewAESCrypter derives a 32-byte key from the passphrase and prepares the
// AEAD. An empty passphrase is a configuration error, not a soft fallback.
func NewAESCrypter(passphrase string) (*AESCrypter, error) {
	if passphrase == "" {
		return nil, errors.New("store passphrase is empty")
	}

	key, err := scrypt.Key([]byte(passphrase), keySalt, 32768, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive store key: %v", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %v", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %v", err)
	}

	return &AESCrypter{gcm: gcm}, nil
}

// Encrypt seals plaintext with a random nonce prefix.
func (c *AESCrypter) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return c.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce-prefixed ciphertext.
func (c *AESCrypter) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := c.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return c.gcm.Open(nil, nonce, sealed, nil)
}
