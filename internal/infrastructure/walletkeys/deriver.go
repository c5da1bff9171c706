package walletkeys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	valueobjects "paymasterhub/internal/domain/value_objects"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// DerivedKey holds plaintext key material. Callers encrypt it and call Wipe.
type DerivedKey struct {
	Category   valueobjects.ChainCategory
	Address    string
	PrivateKey []byte
}

func (k *DerivedKey) Wipe() {
	for i := range k.PrivateKey {
		k.PrivateKey[i] = 0
	}
}

type Deriver struct{}

func NewDeriver() *Deriver {
	return &Deriver{}
}

func (d *Deriver) Derive(projectID string, category valueobjects.ChainCategory, masterSeed []byte) (DerivedKey, *KeyError) {
	return Derive(projectID, category, masterSeed)
}

// Derive is deterministic: the same project, category and seed always produce
// the same key, so wallets can be recovered from the master seed alone.
func Derive(projectID string, category valueobjects.ChainCategory, masterSeed []byte) (DerivedKey, *KeyError) {
	if len(masterSeed) == 0 {
		return DerivedKey{}, wrapKeyError(CodeMasterSeedMissing, "master seed is required", nil)
	}

	switch category {
	case valueobjects.ChainCategoryEVM:
		digest := seedMaterial(projectID, category, masterSeed)
		return evmKeyFromDigest(digest)
	case valueobjects.ChainCategorySVM:
		digest := seedMaterial(projectID, category, masterSeed)
		return svmKeyFromSeed(digest[:]), nil
	default:
		return DerivedKey{}, wrapKeyError(CodeUnsupportedCategory, "chain category is not supported", nil)
	}
}

func seedMaterial(projectID string, category valueobjects.ChainCategory, masterSeed []byte) [32]byte {
	buffer := make([]byte, 0, len(projectID)+3+len(masterSeed))
	buffer = append(buffer, projectID...)
	buffer = append(buffer, category.DerivationLabel()...)
	buffer = append(buffer, masterSeed...)
	return sha256.Sum256(buffer)
}

func evmKeyFromDigest(digest [32]byte) (DerivedKey, *KeyError) {
	privateKey, err := crypto.ToECDSA(digest[:])
	if err != nil {
		return DerivedKey{}, wrapKeyError(CodeDerivationFailed, "digest is not a valid secp256k1 scalar", err)
	}

	return DerivedKey{
		Category:   valueobjects.ChainCategoryEVM,
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey).Hex(),
		PrivateKey: crypto.FromECDSA(privateKey),
	}, nil
}

func svmKeyFromSeed(seed []byte) DerivedKey {
	childSeed := slip10Ed25519DerivePath(seed, solanaDerivationPath)
	privateKey := ed25519.NewKeyFromSeed(childSeed[:])
	publicKey := privateKey.Public().(ed25519.PublicKey)

	return DerivedKey{
		Category:   valueobjects.ChainCategorySVM,
		Address:    base58.Encode(publicKey),
		PrivateKey: []byte(privateKey),
	}
}

// ParsePrivateKey reads an operator-supplied key: 0x-hex for EVM; base58 or a
// JSON byte array (solana-keygen format) for SVM.
func ParsePrivateKey(category valueobjects.ChainCategory, raw string) (DerivedKey, *KeyError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DerivedKey{}, wrapKeyError(CodeInvalidKeyMaterialFormat, "private key is empty", nil)
	}

	switch category {
	case valueobjects.ChainCategoryEVM:
		decoded, err := hex.DecodeString(strings.TrimPrefix(trimmed, "0x"))
		if err != nil || len(decoded) != 32 {
			return DerivedKey{}, wrapKeyError(CodeInvalidKeyMaterialFormat, "evm private key must be 32 hex-encoded bytes", err)
		}
		var digest [32]byte
		copy(digest[:], decoded)
		return evmKeyFromDigest(digest)
	case valueobjects.ChainCategorySVM:
		var decoded []byte
		if strings.HasPrefix(trimmed, "[") {
			var values []int
			if err := json.Unmarshal([]byte(trimmed), &values); err != nil {
				return DerivedKey{}, wrapKeyError(CodeInvalidKeyMaterialFormat, "svm private key json is invalid", err)
			}
			decoded = make([]byte, len(values))
			for i, value := range values {
				if value < 0 || value > 255 {
					return DerivedKey{}, wrapKeyError(CodeInvalidKeyMaterialFormat, "svm private key json has out of range byte", nil)
				}
				decoded[i] = byte(value)
			}
		} else {
			var err error
			decoded, err = base58.Decode(trimmed)
			if err != nil {
				return DerivedKey{}, wrapKeyError(CodeInvalidKeyMaterialFormat, "svm private key is not valid base58", err)
			}
		}

		switch len(decoded) {
		case ed25519.SeedSize:
			return svmKeyFromRawSeed(decoded), nil
		case ed25519.PrivateKeySize:
			return svmKeyFromRawSeed(decoded[:ed25519.SeedSize]), nil
		default:
			return DerivedKey{}, wrapKeyError(CodeInvalidKeyMaterialFormat, "svm private key must be 32 or 64 bytes", nil)
		}
	default:
		return DerivedKey{}, wrapKeyError(CodeUnsupportedCategory, "chain category is not supported", nil)
	}
}

func svmKeyFromRawSeed(seed []byte) DerivedKey {
	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)
	return DerivedKey{
		Category:   valueobjects.ChainCategorySVM,
		Address:    base58.Encode(publicKey),
		PrivateKey: []byte(privateKey),
	}
}
