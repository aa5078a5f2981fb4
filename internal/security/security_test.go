package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledManagerIsPassthrough(t *testing.T) {
	m := NewManager(false)
	assert.False(t, m.IsEnabled())

	data := []byte("rsid\tchrom\tpos\tallele1\tallele2")
	sealed, err := m.Encrypt(data)
	require.NoError(t, err)
	assert.Equal(t, data, sealed)

	opened, err := m.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, data, opened)
}

func TestEncryptRequiresUnlock(t *testing.T) {
	m := NewManager(true)
	assert.False(t, m.HasKey())

	_, err := m.Encrypt([]byte("secret"))
	assert.ErrorIs(t, err, ErrLocked)
	_, err = m.Decrypt([]byte("secret"))
	assert.ErrorIs(t, err, ErrLocked)
}

func TestEncryptRoundTrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	m := NewManager(true)
	require.NoError(t, m.Unlock("correct horse battery", salt))
	assert.True(t, m.HasKey())

	data := []byte("rs4477212\t1\t82154\tA\tA")
	sealed, err := m.Encrypt(data)
	require.NoError(t, err)
	assert.NotEqual(t, data, sealed)

	opened, err := m.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, data, opened)
}

func TestWrongPassphraseFailsToDecrypt(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	m := NewManager(true)
	require.NoError(t, m.Unlock("right", salt))
	sealed, err := m.Encrypt([]byte("payload"))
	require.NoError(t, err)

	other := NewManager(true)
	require.NoError(t, other.Unlock("wrong", salt))
	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestLockDropsKey(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	m := NewManager(true)
	require.NoError(t, m.Unlock("pass", salt))
	m.Lock()
	assert.False(t, m.HasKey())

	_, err = m.Encrypt([]byte("data"))
	assert.ErrorIs(t, err, ErrLocked)
}

func TestDecryptRejectsShortBlob(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	m := NewManager(true)
	require.NoError(t, m.Unlock("pass", salt))
	_, err = m.Decrypt([]byte("short"))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1, err := DeriveKey("pass", salt)
	require.NoError(t, err)
	k2, err := DeriveKey("pass", salt)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := DeriveKey("pass", []byte("fedcba9876543210"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}
