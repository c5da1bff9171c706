package svm

import (
	"bytes"
	"crypto/sha256"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const signatureFeeLamport uint64 = 5_000

var paymasterSeed = []byte("paymaster")

// anchorDiscriminator is the first eight bytes of sha256("global:<name>").
func anchorDiscriminator(name string) []byte {
	digest := sha256.Sum256([]byte("global:" + name))
	return digest[:8]
}

// PaymasterConfig mirrors the on-chain account config written by initialize_paymaster.
type PaymasterConfig struct {
	MaxOperationsPerHour uint64
	MaxCostPerOperation  uint64
	AllowedUsers         []solana.PublicKey
	RateLimitPerUser     uint64
	RequirePreDeposit    bool
}

func DefaultPaymasterConfig() PaymasterConfig {
	return PaymasterConfig{
		MaxOperationsPerHour: 1_000,
		MaxCostPerOperation:  1_000_000,
		RateLimitPerUser:     100,
	}
}

type initializePaymasterArgs struct {
	Owner      solana.PublicKey
	EntryPoint solana.PublicKey
	Config     PaymasterConfig
}

// paymasterAddress is the program account at seeds ["paymaster", owner].
func paymasterAddress(owner solana.PublicKey, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{paymasterSeed, owner.Bytes()}, programID)
}

func initializePaymasterInstruction(
	programID solana.PublicKey,
	paymasterAccount solana.PublicKey,
	payer solana.PublicKey,
	owner solana.PublicKey,
	entryPoint solana.PublicKey,
	config PaymasterConfig,
) (solana.Instruction, error) {
	data := new(bytes.Buffer)
	data.Write(anchorDiscriminator("initialize_paymaster"))
	if err := bin.NewBorshEncoder(data).Encode(initializePaymasterArgs{
		Owner:      owner,
		EntryPoint: entryPoint,
		Config:     config,
	}); err != nil {
		return nil, err
	}

	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(paymasterAccount, true, false),
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		data.Bytes(),
	), nil
}
