package encryption

import (
	"encoding/base64"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredentialEncryptorDefaultKey(t *testing.T) {
	t.Parallel()

	enc, err := NewCredentialEncryptor("")
	require.NoError(t, err)
	require.NotNil(t, enc)
	assert.Equal(t, 1024, enc.publicKey.N.BitLen())
}

func TestNewCredentialEncryptorRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewCredentialEncryptor("not a pem key")
	require.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestEncryptProducesDecodableBase64(t *testing.T) {
	t.Parallel()

	enc, err := NewCredentialEncryptor("")
	require.NoError(t, err)

	out, err := enc.Encrypt("13800138000")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(out)
	require.NoError(t, err)
	// 1024-bit modulus means 128-byte ciphertext.
	assert.Len(t, raw, 128)
}

func TestEncryptIsRandomized(t *testing.T) {
	t.Parallel()

	enc, err := NewCredentialEncryptor("")
	require.NoError(t, err)

	first, err := enc.Encrypt("654321")
	require.NoError(t, err)
	second, err := enc.Encrypt("654321")
	require.NoError(t, err)

	// OAEP padding is randomized; identical inputs must not collide.
	assert.NotEqual(t, first, second)
}

func TestTimestampFormats(t *testing.T) {
	t.Parallel()

	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`), Timestamp())

	ts13 := Timestamp13()
	assert.Len(t, ts13, 13)

	// Two calls straddling a sleep reflect wall-clock movement.
	before := Timestamp13()
	time.Sleep(5 * time.Millisecond)
	after := Timestamp13()
	assert.LessOrEqual(t, before, after)
}
