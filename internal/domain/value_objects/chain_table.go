package valueobjects

import (
	"sort"
	"strings"

	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type ChainSpec struct {
	ID         string
	Category   ChainCategory
	EVMChainID int64
	Symbol     string
	Decimals   int32
	PriceID    string
}

var chainTable = map[string]ChainSpec{
	"ethereum":      {ID: "ethereum", Category: ChainCategoryEVM, EVMChainID: 1, Symbol: "ETH", Decimals: 18, PriceID: "ethereum"},
	"sepolia":       {ID: "sepolia", Category: ChainCategoryEVM, EVMChainID: 11155111, Symbol: "ETH", Decimals: 18, PriceID: "ethereum"},
	"arbitrum":      {ID: "arbitrum", Category: ChainCategoryEVM, EVMChainID: 42161, Symbol: "ETH", Decimals: 18, PriceID: "ethereum"},
	"optimism":      {ID: "optimism", Category: ChainCategoryEVM, EVMChainID: 10, Symbol: "ETH", Decimals: 18, PriceID: "ethereum"},
	"base":          {ID: "base", Category: ChainCategoryEVM, EVMChainID: 8453, Symbol: "ETH", Decimals: 18, PriceID: "ethereum"},
	"polygon":       {ID: "polygon", Category: ChainCategoryEVM, EVMChainID: 137, Symbol: "POL", Decimals: 18, PriceID: "polygon-ecosystem-token"},
	"bsc":           {ID: "bsc", Category: ChainCategoryEVM, EVMChainID: 56, Symbol: "BNB", Decimals: 18, PriceID: "binancecoin"},
	"avalanche":     {ID: "avalanche", Category: ChainCategoryEVM, EVMChainID: 43114, Symbol: "AVAX", Decimals: 18, PriceID: "avalanche-2"},
	"solana":        {ID: "solana", Category: ChainCategorySVM, Symbol: "SOL", Decimals: 9, PriceID: "solana"},
	"solana-devnet": {ID: "solana-devnet", Category: ChainCategorySVM, Symbol: "SOL", Decimals: 9, PriceID: "solana"},
}

func LookupChain(chain string) (ChainSpec, *apperrors.AppError) {
	spec, ok := chainTable[strings.ToLower(strings.TrimSpace(chain))]
	if !ok {
		return ChainSpec{}, apperrors.NewValidation(
			"unsupported_chain",
			"chain is not supported",
			map[string]any{"chain": chain},
		)
	}

	return spec, nil
}

func SupportedChains() []string {
	out := make([]string, 0, len(chainTable))
	for id := range chainTable {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ChainGroup holds the requested chains of one category in request order.
type ChainGroup struct {
	Category ChainCategory
	Chains   []string
}

// GroupChainsByCategory drops unknown chains into ignored and de-duplicates the rest.
func GroupChainsByCategory(chains []string) (groups []ChainGroup, ignored []string) {
	byCategory := map[ChainCategory][]string{}
	seen := map[string]struct{}{}
	for _, raw := range chains {
		spec, appErr := LookupChain(raw)
		if appErr != nil {
			ignored = append(ignored, raw)
			continue
		}
		if _, ok := seen[spec.ID]; ok {
			continue
		}
		seen[spec.ID] = struct{}{}
		byCategory[spec.Category] = append(byCategory[spec.Category], spec.ID)
	}

	for _, category := range chainCategoryOrder {
		if members := byCategory[category]; len(members) > 0 {
			groups = append(groups, ChainGroup{Category: category, Chains: members})
		}
	}

	return groups, ignored
}
