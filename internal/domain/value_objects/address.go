package valueobjects

import (
	"regexp"
	"strings"

	apperrors "paymasterhub/internal/shared_kernel/errors"

	"golang.org/x/crypto/sha3"
)

var (
	evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	svmAddressPattern = regexp.MustCompile(`^[123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz]{32,44}$`)
)

// IsValidAddress checks length and checksum for EVM addresses (mixed-case input
// must carry a correct EIP-55 checksum) and the base58 charset for SVM addresses.
func IsValidAddress(category ChainCategory, address string) bool {
	switch category {
	case ChainCategoryEVM:
		return isValidEVMAddress(address)
	case ChainCategorySVM:
		return svmAddressPattern.MatchString(address)
	default:
		return false
	}
}

func ValidateAddress(category ChainCategory, address string) *apperrors.AppError {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return apperrors.NewValidation(
			"invalid_request",
			"address is required",
			map[string]any{"field": "address"},
		)
	}
	if category != ChainCategoryEVM && category != ChainCategorySVM {
		return apperrors.NewValidation(
			"unsupported_category",
			"chain category is not supported",
			map[string]any{"category": category.String()},
		)
	}
	if !IsValidAddress(category, trimmed) {
		return apperrors.NewValidation(
			"invalid_address",
			"address is invalid for chain category",
			map[string]any{"category": category.String(), "address": trimmed},
		)
	}

	return nil
}

func isValidEVMAddress(address string) bool {
	if !evmAddressPattern.MatchString(address) {
		return false
	}

	hexPart := strings.TrimPrefix(address, "0x")
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}

	checksummed, appErr := ToEIP55Checksum(address)
	if appErr != nil {
		return false
	}
	return checksummed == address
}

func ToEIP55Checksum(address string) (string, *apperrors.AppError) {
	normalized := "0x" + strings.ToLower(strings.TrimSpace(strings.TrimPrefix(address, "0x")))
	if !evmAddressPattern.MatchString(normalized) {
		return "", apperrors.NewValidation(
			"invalid_address",
			"evm address is invalid",
			map[string]any{"address": address},
		)
	}

	hexPart := strings.TrimPrefix(normalized, "0x")
	hash := sha3.NewLegacyKeccak256()
	_, _ = hash.Write([]byte(hexPart))
	digest := hash.Sum(nil)

	out := []byte(hexPart)
	for i := range out {
		if out[i] < 'a' {
			continue
		}

		nibble := digest[i/2] & 0x0f
		if i%2 == 0 {
			nibble = digest[i/2] >> 4
		}
		if nibble >= 8 {
			out[i] -= 'a' - 'A'
		}
	}

	return "0x" + string(out), nil
}
