package valueobjects

// EncryptedPrivateKey wraps key ciphertext. It never renders its bytes through
// fmt, JSON or text encoding; plaintext only exists inside a cipher's scoped open.
type EncryptedPrivateKey struct {
	ciphertext []byte
}

func NewEncryptedPrivateKey(ciphertext []byte) EncryptedPrivateKey {
	out := make([]byte, len(ciphertext))
	copy(out, ciphertext)
	return EncryptedPrivateKey{ciphertext: out}
}

func (k EncryptedPrivateKey) Ciphertext() []byte {
	out := make([]byte, len(k.ciphertext))
	copy(out, k.ciphertext)
	return out
}

func (k EncryptedPrivateKey) IsZero() bool {
	return len(k.ciphertext) == 0
}

func (k EncryptedPrivateKey) String() string {
	return "[encrypted]"
}

func (k EncryptedPrivateKey) GoString() string {
	return "valueobjects.EncryptedPrivateKey{[encrypted]}"
}

func (k EncryptedPrivateKey) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (k EncryptedPrivateKey) MarshalText() ([]byte, error) {
	return []byte("[encrypted]"), nil
}
