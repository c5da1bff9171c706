package out

import (
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

// SecretCipher only exposes plaintext to use; the buffer is wiped when use returns.
type SecretCipher interface {
	Seal(plaintext []byte) (valueobjects.EncryptedPrivateKey, *apperrors.AppError)
	Open(secret valueobjects.EncryptedPrivateKey, use func(plaintext []byte) *apperrors.AppError) *apperrors.AppError
}
