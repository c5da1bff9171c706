package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	portsout "paymasterhub/internal/application/ports/out"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	envelopeVersion = byte(1)
	keyInfo         = "paymasterhub/paymaster-private-key/v1"

	errorCodeSecretConfigInvalid = "secret_config_invalid"
	errorCodeSecretSealFailed    = "secret_seal_failed"
	errorCodeSecretOpenFailed    = "secret_open_failed"
)

// XChaChaCipher seals paymaster private keys as version || nonce || ciphertext.
// The record key is stretched from the configured secret with HKDF-SHA256.
type XChaChaCipher struct {
	aead cipher.AEAD
}

var _ portsout.SecretCipher = (*XChaChaCipher)(nil)

func NewXChaChaCipher(secret string) (*XChaChaCipher, *apperrors.AppError) {
	if secret == "" {
		return nil, apperrors.NewInternal(errorCodeSecretConfigInvalid, "key encryption secret is required", nil)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, apperrors.NewInternal(errorCodeSecretConfigInvalid, "failed to derive encryption key", nil)
	}
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, apperrors.NewInternal(errorCodeSecretConfigInvalid, "failed to initialize cipher", nil)
	}
	return &XChaChaCipher{aead: aead}, nil
}

func (c *XChaChaCipher) Seal(plaintext []byte) (valueobjects.EncryptedPrivateKey, *apperrors.AppError) {
	if len(plaintext) == 0 {
		return valueobjects.EncryptedPrivateKey{}, apperrors.NewInternal(errorCodeSecretSealFailed, "private key is empty", nil)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return valueobjects.EncryptedPrivateKey{}, apperrors.NewInternal(errorCodeSecretSealFailed, "failed to generate nonce", nil)
	}

	envelope := make([]byte, 0, 1+len(nonce)+len(plaintext)+c.aead.Overhead())
	envelope = append(envelope, envelopeVersion)
	envelope = append(envelope, nonce...)
	envelope = c.aead.Seal(envelope, nonce, plaintext, []byte{envelopeVersion})
	return valueobjects.NewEncryptedPrivateKey(envelope), nil
}

func (c *XChaChaCipher) Open(
	secret valueobjects.EncryptedPrivateKey,
	use func(plaintext []byte) *apperrors.AppError,
) *apperrors.AppError {
	envelope := secret.Ciphertext()
	headerSize := 1 + chacha20poly1305.NonceSizeX
	if len(envelope) < headerSize+c.aead.Overhead() || envelope[0] != envelopeVersion {
		return apperrors.NewInternal(errorCodeSecretOpenFailed, "encrypted private key is malformed", nil)
	}

	plaintext, err := c.aead.Open(nil, envelope[1:headerSize], envelope[headerSize:], []byte{envelopeVersion})
	if err != nil {
		return apperrors.NewInternal(errorCodeSecretOpenFailed, "failed to decrypt private key", nil)
	}
	defer wipe(plaintext)

	return use(plaintext)
}

func wipe(buffer []byte) {
	for i := range buffer {
		buffer[i] = 0
	}
}
