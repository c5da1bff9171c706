package dto

import "math/big"

type DeployPaymasterInput struct {
	Chain      string
	Address    string
	PrivateKey []byte
}

type DeployPaymasterOutput struct {
	ContractAddress   string
	TxHash            string
	EntryPointAddress string
}

type FundFromDeployerInput struct {
	Chain       string
	Address     string
	AmountMinor *big.Int
}

type FundFromDeployerOutput struct {
	TxHash string
}
