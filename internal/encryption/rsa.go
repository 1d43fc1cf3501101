package encryption

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidPublicKey = errors.New("invalid RSA public key")
	ErrEncryptFailed    = errors.New("credential encryption failed")
)

// DefaultPublicKey is the carrier-issued 1024-bit RSA public key. The
// upstream protocol pins this key; it is not a secret.
const DefaultPublicKey = `-----BEGIN PUBLIC KEY-----
MIGfMA0GCSqGSIb3DQEBAQUAA4GNADCBiQKBgQDc+CZK9bRA9m8YRQD4NeRBhRWA
J0VE6opNGGNoPg+r1YAGkfkuJWSvGJyVnG3+1R5AqiPfNy7Nj1YVrS0AhHhZvG7a
Wc7wlx6fRZFyCkTi0CSkQ/yCY6NjZOVd8Qb6SFw7UXhInMFN5SU0+ZPCJo1Qk7eR
7TA/VrPOiMKklHQIDAQAB
-----END PUBLIC KEY-----`

// CredentialEncryptor prepares phone numbers and service passwords for
// the carrier login protocol: substitution transform first, then
// RSA-OAEP with SHA-1, then base64.
type CredentialEncryptor struct {
	publicKey *rsa.PublicKey
}

// NewCredentialEncryptor parses pemKey once and returns an encryptor.
// An empty pemKey selects the protocol default key.
func NewCredentialEncryptor(pemKey string) (*CredentialEncryptor, error) {
	if pemKey == "" {
		pemKey = DefaultPublicKey
	}

	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidPublicKey)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}

	return &CredentialEncryptor{publicKey: rsaKey}, nil
}

// Encrypt runs the full credential pipeline on plaintext. OAEP is
// randomized, so repeated calls on the same input yield different
// ciphertexts; the carrier decrypts either.
func (e *CredentialEncryptor) Encrypt(plaintext string) (string, error) {
	transformed := Transform(plaintext)

	ciphertext, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, e.publicKey, []byte(transformed), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Timestamp returns the current local time as "YYYY-MM-DD HH:MM:SS",
// the format the carrier expects in request envelopes.
func Timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

// Timestamp13 returns the current epoch time in milliseconds as a
// 13-digit decimal string.
func Timestamp13() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
