package walletkeys

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
)

const hardenedOffset uint32 = 0x80000000

// solanaDerivationPath is m/44'/501'/0'/0'.
var solanaDerivationPath = []uint32{
	44 + hardenedOffset,
	501 + hardenedOffset,
	0 + hardenedOffset,
	0 + hardenedOffset,
}

// slip10Ed25519Master returns the SLIP-0010 ed25519 master key and chain code.
func slip10Ed25519Master(seed []byte) (key [32]byte, chainCode [32]byte) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	_, _ = mac.Write(seed)
	sum := mac.Sum(nil)

	copy(key[:], sum[:32])
	copy(chainCode[:], sum[32:])
	return key, chainCode
}

// slip10Ed25519Child derives a hardened child; ed25519 has no public derivation.
func slip10Ed25519Child(key, chainCode [32]byte, index uint32) (childKey [32]byte, childChainCode [32]byte) {
	data := make([]byte, 0, 37)
	data = append(data, 0x00)
	data = append(data, key[:]...)
	data = binary.BigEndian.AppendUint32(data, index|hardenedOffset)

	mac := hmac.New(sha512.New, chainCode[:])
	_, _ = mac.Write(data)
	sum := mac.Sum(nil)

	copy(childKey[:], sum[:32])
	copy(childChainCode[:], sum[32:])
	return childKey, childChainCode
}

func slip10Ed25519DerivePath(seed []byte, path []uint32) [32]byte {
	key, chainCode := slip10Ed25519Master(seed)
	for _, index := range path {
		key, chainCode = slip10Ed25519Child(key, chainCode, index)
	}
	return key
}
