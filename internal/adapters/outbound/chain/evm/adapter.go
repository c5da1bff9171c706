package evm

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"log"
	"math/big"
	"strings"

	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	valueobjects "paymasterhub/internal/domain/value_objects"
	"paymasterhub/internal/infrastructure/walletkeys"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/puzpuzpuz/xsync"
)

const paymasterConstructorABI = `[{"inputs":[{"internalType":"address","name":"entryPoint","type":"address"},{"internalType":"address","name":"owner","type":"address"}],"stateMutability":"nonpayable","type":"constructor"}]`

const transferGasLimit uint64 = 21_000

// Client is the subset of ethclient.Client the adapter needs.
type Client interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
}

type Dialer func(ctx context.Context, rawURL string) (Client, error)

func DialEthclient(ctx context.Context, rawURL string) (Client, error) {
	return ethclient.DialContext(ctx, rawURL)
}

type Config struct {
	RPCURLs            map[string]string
	Bytecode           string
	EntryPointAddress  string
	DeployerPrivateKey string
}

type Adapter struct {
	rpcURLs     map[string]string
	dial        Dialer
	bytecode    []byte
	constructor abi.ABI
	entryPoint  common.Address
	deployer    *ecdsa.PrivateKey
	clients     *xsync.MapOf[string, Client]
	logger      *log.Logger
}

var _ portsout.ChainAdapter = (*Adapter)(nil)

func NewAdapter(cfg Config, dial Dialer, logger *log.Logger) (*Adapter, *apperrors.AppError) {
	if dial == nil {
		dial = DialEthclient
	}

	constructor, err := abi.JSON(strings.NewReader(paymasterConstructorABI))
	if err != nil {
		return nil, apperrors.NewInternal(
			"evm_abi_invalid",
			"failed to parse paymaster constructor abi",
			map[string]any{"error": err.Error()},
		)
	}

	var bytecode []byte
	if trimmed := strings.TrimPrefix(strings.TrimSpace(cfg.Bytecode), "0x"); trimmed != "" {
		bytecode, err = hex.DecodeString(trimmed)
		if err != nil {
			return nil, apperrors.NewInternal(
				"evm_bytecode_invalid",
				"paymaster bytecode must be hex encoded",
				map[string]any{"error": err.Error()},
			)
		}
	}

	var deployer *ecdsa.PrivateKey
	if strings.TrimSpace(cfg.DeployerPrivateKey) != "" {
		parsed, keyErr := walletkeys.ParsePrivateKey(valueobjects.ChainCategoryEVM, cfg.DeployerPrivateKey)
		if keyErr != nil {
			return nil, apperrors.NewInternal("evm_deployer_key_invalid", keyErr.Message, nil)
		}
		deployer, err = crypto.ToECDSA(parsed.PrivateKey)
		parsed.Wipe()
		if err != nil {
			return nil, apperrors.NewInternal("evm_deployer_key_invalid", "deployer key is not a valid secp256k1 key", nil)
		}
	}

	rpcURLs := map[string]string{}
	for chain, rawURL := range cfg.RPCURLs {
		spec, appErr := valueobjects.LookupChain(chain)
		if appErr != nil || spec.Category != valueobjects.ChainCategoryEVM {
			continue
		}
		rpcURLs[spec.ID] = rawURL
	}

	return &Adapter{
		rpcURLs:     rpcURLs,
		dial:        dial,
		bytecode:    bytecode,
		constructor: constructor,
		entryPoint:  common.HexToAddress(cfg.EntryPointAddress),
		deployer:    deployer,
		clients:     xsync.NewMapOf[Client](),
		logger:      logger,
	}, nil
}

func (a *Adapter) Category() valueobjects.ChainCategory {
	return valueobjects.ChainCategoryEVM
}

func (a *Adapter) DeployerConfigured() bool {
	return a.deployer != nil
}

// Deploy sends the paymaster contract creation signed by the paymaster key and
// waits for the receipt. The paymaster key is the contract owner.
func (a *Adapter) Deploy(ctx context.Context, input dto.DeployPaymasterInput) (dto.DeployPaymasterOutput, *apperrors.AppError) {
	if len(a.bytecode) == 0 {
		return dto.DeployPaymasterOutput{}, apperrors.NewInternal(
			"evm_bytecode_not_configured",
			"paymaster contract bytecode is not configured",
			map[string]any{"chain": input.Chain},
		)
	}

	spec, client, appErr := a.client(ctx, input.Chain)
	if appErr != nil {
		return dto.DeployPaymasterOutput{}, appErr
	}

	owner, err := crypto.ToECDSA(input.PrivateKey)
	if err != nil {
		return dto.DeployPaymasterOutput{}, apperrors.NewInternal(
			"paymaster_key_invalid",
			"paymaster key is not a valid secp256k1 key",
			map[string]any{"chain": input.Chain},
		)
	}
	ownerAddress := crypto.PubkeyToAddress(owner.PublicKey)

	args, err := a.constructor.Pack("", a.entryPoint, ownerAddress)
	if err != nil {
		return dto.DeployPaymasterOutput{}, apperrors.NewInternal(
			"evm_constructor_encode_failed",
			"failed to encode paymaster constructor arguments",
			map[string]any{"error": err.Error()},
		)
	}
	data := make([]byte, 0, len(a.bytecode)+len(args))
	data = append(data, a.bytecode...)
	data = append(data, args...)

	nonce, err := client.PendingNonceAt(ctx, ownerAddress)
	if err != nil {
		return dto.DeployPaymasterOutput{}, rpcError(spec.ID, "pending_nonce", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return dto.DeployPaymasterOutput{}, rpcError(spec.ID, "suggest_gas_price", err)
	}
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{From: ownerAddress, Data: data})
	if err != nil {
		return dto.DeployPaymasterOutput{}, rpcError(spec.ID, "estimate_gas", err)
	}

	tx := types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, data)
	receipt, appErr := a.sendAndWait(ctx, spec, client, tx, owner)
	if appErr != nil {
		return dto.DeployPaymasterOutput{}, appErr
	}

	a.logf(
		"evm paymaster deployed chain=%s owner=%s contract=%s tx_hash=%s",
		spec.ID,
		ownerAddress.Hex(),
		receipt.ContractAddress.Hex(),
		receipt.TxHash.Hex(),
	)
	return dto.DeployPaymasterOutput{
		ContractAddress:   receipt.ContractAddress.Hex(),
		TxHash:            receipt.TxHash.Hex(),
		EntryPointAddress: a.entryPoint.Hex(),
	}, nil
}

func (a *Adapter) FundFromDeployer(ctx context.Context, input dto.FundFromDeployerInput) (dto.FundFromDeployerOutput, *apperrors.AppError) {
	if a.deployer == nil {
		return dto.FundFromDeployerOutput{}, apperrors.NewInternal(
			"deployer_not_configured",
			"no evm deployer account configured",
			map[string]any{"chain": input.Chain},
		)
	}
	if input.AmountMinor == nil || input.AmountMinor.Sign() <= 0 {
		return dto.FundFromDeployerOutput{}, apperrors.NewValidation(
			"invalid_request",
			"funding amount must be positive",
			map[string]any{"chain": input.Chain},
		)
	}
	if !common.IsHexAddress(input.Address) {
		return dto.FundFromDeployerOutput{}, apperrors.NewValidation(
			"invalid_address",
			"funding target is not an evm address",
			map[string]any{"address": input.Address},
		)
	}

	spec, client, appErr := a.client(ctx, input.Chain)
	if appErr != nil {
		return dto.FundFromDeployerOutput{}, appErr
	}

	from := crypto.PubkeyToAddress(a.deployer.PublicKey)
	to := common.HexToAddress(input.Address)

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return dto.FundFromDeployerOutput{}, rpcError(spec.ID, "suggest_gas_price", err)
	}
	balance, err := client.BalanceAt(ctx, from, nil)
	if err != nil {
		return dto.FundFromDeployerOutput{}, rpcError(spec.ID, "balance_at", err)
	}
	required := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(transferGasLimit))
	required.Add(required, input.AmountMinor)
	if balance.Cmp(required) < 0 {
		return dto.FundFromDeployerOutput{}, apperrors.NewUnavailable(
			"insufficient_deployer_balance",
			"deployer balance does not cover the funding transfer",
			map[string]any{
				"chain":    spec.ID,
				"deployer": from.Hex(),
				"balance":  balance.String(),
				"required": required.String(),
			},
		)
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return dto.FundFromDeployerOutput{}, rpcError(spec.ID, "pending_nonce", err)
	}

	tx := types.NewTransaction(nonce, to, input.AmountMinor, transferGasLimit, gasPrice, nil)
	receipt, appErr := a.sendAndWait(ctx, spec, client, tx, a.deployer)
	if appErr != nil {
		return dto.FundFromDeployerOutput{}, appErr
	}

	return dto.FundFromDeployerOutput{TxHash: receipt.TxHash.Hex()}, nil
}

func (a *Adapter) GetNativeBalance(ctx context.Context, chain string, address string) (*big.Int, *apperrors.AppError) {
	if !common.IsHexAddress(address) {
		return nil, apperrors.NewValidation(
			"invalid_address",
			"address is not an evm address",
			map[string]any{"address": address},
		)
	}

	spec, client, appErr := a.client(ctx, chain)
	if appErr != nil {
		return nil, appErr
	}

	balance, err := client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, rpcError(spec.ID, "balance_at", err)
	}
	return balance, nil
}

func (a *Adapter) sendAndWait(
	ctx context.Context,
	spec valueobjects.ChainSpec,
	client Client,
	tx *types.Transaction,
	signer *ecdsa.PrivateKey,
) (*types.Receipt, *apperrors.AppError) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(spec.EVMChainID)), signer)
	if err != nil {
		return nil, apperrors.NewInternal(
			"evm_sign_failed",
			"failed to sign transaction",
			map[string]any{"chain": spec.ID, "error": err.Error()},
		)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return nil, rpcError(spec.ID, "send_transaction", err)
	}

	receipt, err := bind.WaitMined(ctx, client, signed)
	if err != nil {
		return nil, rpcError(spec.ID, "wait_mined", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, apperrors.NewUnavailable(
			"chain_tx_reverted",
			"transaction reverted",
			map[string]any{"chain": spec.ID, "tx_hash": signed.Hash().Hex()},
		)
	}
	return receipt, nil
}

func (a *Adapter) client(ctx context.Context, chain string) (valueobjects.ChainSpec, Client, *apperrors.AppError) {
	spec, appErr := valueobjects.LookupChain(chain)
	if appErr != nil {
		return valueobjects.ChainSpec{}, nil, appErr
	}
	if spec.Category != valueobjects.ChainCategoryEVM {
		return valueobjects.ChainSpec{}, nil, apperrors.NewValidation(
			"unsupported_chain",
			"chain is not an evm chain",
			map[string]any{"chain": chain},
		)
	}

	if client, ok := a.clients.Load(spec.ID); ok {
		return spec, client, nil
	}

	rawURL, ok := a.rpcURLs[spec.ID]
	if !ok {
		return valueobjects.ChainSpec{}, nil, apperrors.NewUnavailable(
			"chain_rpc_not_configured",
			"no rpc url configured for chain",
			map[string]any{"chain": spec.ID},
		)
	}

	client, err := a.dial(ctx, rawURL)
	if err != nil {
		return valueobjects.ChainSpec{}, nil, rpcError(spec.ID, "dial", err)
	}
	stored, _ := a.clients.LoadOrStore(spec.ID, client)
	return spec, stored, nil
}

func (a *Adapter) logf(format string, args ...any) {
	if a.logger == nil {
		return
	}
	a.logger.Printf(format, args...)
}

func rpcError(chain, operation string, err error) *apperrors.AppError {
	return apperrors.NewUnavailable(
		"chain_rpc_error",
		"evm rpc call failed",
		map[string]any{"chain": chain, "operation": operation, "error": err.Error()},
	)
}
