//go:build !integration

package secrets

import (
	"bytes"
	"testing"

	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXChaChaCipherRoundTripWipesPlaintext(t *testing.T) {
	cipher, appErr := NewXChaChaCipher("test-secret")
	require.Nil(t, appErr)

	key := bytes.Repeat([]byte{0x42}, 32)
	sealed, appErr := cipher.Seal(key)
	require.Nil(t, appErr)
	assert.False(t, bytes.Contains(sealed.Ciphertext(), key))

	var seen []byte
	var retained []byte
	appErr = cipher.Open(sealed, func(plaintext []byte) *apperrors.AppError {
		seen = append([]byte(nil), plaintext...)
		retained = plaintext
		return nil
	})
	require.Nil(t, appErr)
	assert.Equal(t, key, seen)
	assert.Equal(t, make([]byte, 32), retained, "plaintext is zeroed after use")
}

func TestXChaChaCipherUsesFreshNonces(t *testing.T) {
	cipher, appErr := NewXChaChaCipher("test-secret")
	require.Nil(t, appErr)

	first, _ := cipher.Seal([]byte("same-key"))
	second, _ := cipher.Seal([]byte("same-key"))
	assert.NotEqual(t, first.Ciphertext(), second.Ciphertext())
}

func TestXChaChaCipherRejectsWrongSecretAndTampering(t *testing.T) {
	sealer, _ := NewXChaChaCipher("secret-a")
	opener, _ := NewXChaChaCipher("secret-b")
	sealed, appErr := sealer.Seal([]byte("private"))
	require.Nil(t, appErr)

	called := false
	appErr = opener.Open(sealed, func([]byte) *apperrors.AppError {
		called = true
		return nil
	})
	require.NotNil(t, appErr)
	assert.Equal(t, errorCodeSecretOpenFailed, appErr.Code)
	assert.False(t, called)

	tampered := sealed.Ciphertext()
	tampered[len(tampered)-1] ^= 0xff
	appErr = sealer.Open(valueobjects.NewEncryptedPrivateKey(tampered), func([]byte) *apperrors.AppError { return nil })
	require.NotNil(t, appErr)

	appErr = sealer.Open(valueobjects.NewEncryptedPrivateKey([]byte{1, 2, 3}), func([]byte) *apperrors.AppError { return nil })
	require.NotNil(t, appErr)
	assert.Equal(t, errorCodeSecretOpenFailed, appErr.Code)
}

func TestXChaChaCipherPropagatesUseError(t *testing.T) {
	cipher, _ := NewXChaChaCipher("test-secret")
	sealed, _ := cipher.Seal([]byte("private"))

	appErr := cipher.Open(sealed, func([]byte) *apperrors.AppError {
		return apperrors.NewUnavailable("chain_rpc_error", "rpc down", nil)
	})
	require.NotNil(t, appErr)
	assert.Equal(t, "chain_rpc_error", appErr.Code)
}

func TestNewXChaChaCipherRequiresSecret(t *testing.T) {
	_, appErr := NewXChaChaCipher("")
	require.NotNil(t, appErr)
	assert.Equal(t, errorCodeSecretConfigInvalid, appErr.Code)
}
