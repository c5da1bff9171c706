package valueobjects

import (
	"strings"

	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type ChainCategory string

const (
	ChainCategoryEVM ChainCategory = "EVM"
	ChainCategorySVM ChainCategory = "SVM"
)

var chainCategoryOrder = []ChainCategory{ChainCategoryEVM, ChainCategorySVM}

func ParseChainCategory(raw string) (ChainCategory, *apperrors.AppError) {
	switch ChainCategory(strings.ToUpper(strings.TrimSpace(raw))) {
	case ChainCategoryEVM:
		return ChainCategoryEVM, nil
	case ChainCategorySVM:
		return ChainCategorySVM, nil
	default:
		return "", apperrors.NewValidation(
			"unsupported_category",
			"chain category is not supported",
			map[string]any{"category": raw},
		)
	}
}

// ChainCategories returns the known categories in provisioning order.
func ChainCategories() []ChainCategory {
	out := make([]ChainCategory, len(chainCategoryOrder))
	copy(out, chainCategoryOrder)
	return out
}

func (c ChainCategory) String() string {
	return string(c)
}

// DerivationLabel is the lower-case tag mixed into key derivation seed material.
func (c ChainCategory) DerivationLabel() string {
	return strings.ToLower(string(c))
}
