package svm

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log"
	"math/big"
	"strings"
	"time"

	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	valueobjects "paymasterhub/internal/domain/value_objects"
	"paymasterhub/internal/infrastructure/walletkeys"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

const defaultConfirmPollInterval = 500 * time.Millisecond

type Config struct {
	RPCURLs             map[string]string
	ProgramID           string
	EntryPointProgramID string
	DeployerPrivateKey  string
	PaymasterConfig     PaymasterConfig
	ConfirmPollInterval time.Duration
}

type Adapter struct {
	clients         map[string]*rpc.Client
	programID       *solana.PublicKey
	entryPoint      solana.PublicKey
	deployer        solana.PrivateKey
	paymasterConfig PaymasterConfig
	pollInterval    time.Duration
	logger          *log.Logger
}

var _ portsout.ChainAdapter = (*Adapter)(nil)

func NewAdapter(cfg Config, logger *log.Logger) (*Adapter, *apperrors.AppError) {
	adapter := &Adapter{
		paymasterConfig: cfg.PaymasterConfig,
		pollInterval:    cfg.ConfirmPollInterval,
		logger:          logger,
	}
	if adapter.pollInterval <= 0 {
		adapter.pollInterval = defaultConfirmPollInterval
	}
	if adapter.paymasterConfig.MaxOperationsPerHour == 0 {
		adapter.paymasterConfig = DefaultPaymasterConfig()
	}

	endpoints := map[string]string{}
	for chain, rawURL := range cfg.RPCURLs {
		spec, appErr := valueobjects.LookupChain(chain)
		if appErr != nil || spec.Category != valueobjects.ChainCategorySVM {
			continue
		}
		endpoints[spec.ID] = rawURL
	}
	adapter.clients = newRPCClients(endpoints)

	if programID := strings.TrimSpace(cfg.ProgramID); programID != "" {
		key, err := solana.PublicKeyFromBase58(programID)
		if err != nil {
			return nil, apperrors.NewInternal("svm_program_id_invalid", "paymaster program id is not a valid svm address", map[string]any{"error": err.Error()})
		}
		adapter.programID = &key
	}
	if entryPoint := strings.TrimSpace(cfg.EntryPointProgramID); entryPoint != "" {
		key, err := solana.PublicKeyFromBase58(entryPoint)
		if err != nil {
			return nil, apperrors.NewInternal("svm_entry_point_invalid", "entry point program id is not a valid svm address", map[string]any{"error": err.Error()})
		}
		adapter.entryPoint = key
	}
	if strings.TrimSpace(cfg.DeployerPrivateKey) != "" {
		parsed, keyErr := walletkeys.ParsePrivateKey(valueobjects.ChainCategorySVM, cfg.DeployerPrivateKey)
		if keyErr != nil {
			return nil, apperrors.NewInternal("svm_deployer_key_invalid", keyErr.Message, nil)
		}
		adapter.deployer = solana.PrivateKey(parsed.PrivateKey)
	}

	return adapter, nil
}

func (a *Adapter) Category() valueobjects.ChainCategory {
	return valueobjects.ChainCategorySVM
}

func (a *Adapter) DeployerConfigured() bool {
	return len(a.deployer) == ed25519.PrivateKeySize
}

// Deploy initializes the paymaster account at PDA ["paymaster", owner]. An
// account that already exists is reported as deployed without a new transaction.
func (a *Adapter) Deploy(ctx context.Context, input dto.DeployPaymasterInput) (dto.DeployPaymasterOutput, *apperrors.AppError) {
	if a.programID == nil {
		return dto.DeployPaymasterOutput{}, apperrors.NewInternal(
			"svm_program_not_configured",
			"paymaster program id is not configured",
			map[string]any{"chain": input.Chain},
		)
	}
	if len(input.PrivateKey) != ed25519.PrivateKeySize {
		return dto.DeployPaymasterOutput{}, apperrors.NewInternal(
			"paymaster_key_invalid",
			"paymaster key is not an ed25519 private key",
			map[string]any{"chain": input.Chain},
		)
	}

	spec, client, appErr := a.endpoint(input.Chain)
	if appErr != nil {
		return dto.DeployPaymasterOutput{}, appErr
	}

	signer := solana.PrivateKey(input.PrivateKey)
	owner := signer.PublicKey()
	account, _, err := paymasterAddress(owner, *a.programID)
	if err != nil {
		return dto.DeployPaymasterOutput{}, apperrors.NewInternal(
			"svm_pda_derivation_failed",
			"failed to derive paymaster account address",
			map[string]any{"error": err.Error()},
		)
	}
	output := dto.DeployPaymasterOutput{
		ContractAddress:   account.String(),
		EntryPointAddress: a.entryPoint.String(),
	}

	exists, appErr := a.accountExists(ctx, client, account)
	if appErr != nil {
		return dto.DeployPaymasterOutput{}, appErr
	}
	if exists {
		a.logf("svm paymaster already initialized chain=%s account=%s", spec.ID, output.ContractAddress)
		return output, nil
	}

	instruction, err := initializePaymasterInstruction(*a.programID, account, owner, owner, a.entryPoint, a.paymasterConfig)
	if err != nil {
		return dto.DeployPaymasterOutput{}, apperrors.NewInternal(
			"svm_instruction_encode_failed",
			"failed to encode initialize_paymaster instruction",
			map[string]any{"error": err.Error()},
		)
	}
	signature, appErr := a.submit(ctx, client, signer, instruction)
	if appErr != nil {
		return dto.DeployPaymasterOutput{}, appErr
	}
	output.TxHash = signature

	a.logf(
		"svm paymaster initialized chain=%s owner=%s account=%s signature=%s",
		spec.ID,
		owner,
		output.ContractAddress,
		signature,
	)
	return output, nil
}

func (a *Adapter) FundFromDeployer(ctx context.Context, input dto.FundFromDeployerInput) (dto.FundFromDeployerOutput, *apperrors.AppError) {
	if !a.DeployerConfigured() {
		return dto.FundFromDeployerOutput{}, apperrors.NewInternal(
			"deployer_not_configured",
			"no svm deployer account configured",
			map[string]any{"chain": input.Chain},
		)
	}
	if input.AmountMinor == nil || input.AmountMinor.Sign() <= 0 || !input.AmountMinor.IsUint64() {
		return dto.FundFromDeployerOutput{}, apperrors.NewValidation(
			"invalid_request",
			"funding amount must be a positive lamport amount",
			map[string]any{"chain": input.Chain},
		)
	}
	target, err := solana.PublicKeyFromBase58(input.Address)
	if err != nil {
		return dto.FundFromDeployerOutput{}, apperrors.NewValidation(
			"invalid_address",
			"funding target is not an svm address",
			map[string]any{"address": input.Address},
		)
	}

	spec, client, appErr := a.endpoint(input.Chain)
	if appErr != nil {
		return dto.FundFromDeployerOutput{}, appErr
	}

	from := a.deployer.PublicKey()
	balance, appErr := a.balance(ctx, client, from)
	if appErr != nil {
		return dto.FundFromDeployerOutput{}, appErr
	}
	lamports := input.AmountMinor.Uint64()
	required := lamports + signatureFeeLamport
	if balance < required {
		return dto.FundFromDeployerOutput{}, apperrors.NewUnavailable(
			"insufficient_deployer_balance",
			"deployer balance does not cover the funding transfer",
			map[string]any{
				"chain":    spec.ID,
				"deployer": from.String(),
				"balance":  balance,
				"required": required,
			},
		)
	}

	transfer := system.NewTransferInstruction(lamports, from, target).Build()
	signature, appErr := a.submit(ctx, client, a.deployer, transfer)
	if appErr != nil {
		return dto.FundFromDeployerOutput{}, appErr
	}
	return dto.FundFromDeployerOutput{TxHash: signature}, nil
}

func (a *Adapter) GetNativeBalance(ctx context.Context, chain string, address string) (*big.Int, *apperrors.AppError) {
	account, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, apperrors.NewValidation(
			"invalid_address",
			"address is not an svm address",
			map[string]any{"address": address},
		)
	}

	_, client, appErr := a.endpoint(chain)
	if appErr != nil {
		return nil, appErr
	}

	lamports, appErr := a.balance(ctx, client, account)
	if appErr != nil {
		return nil, appErr
	}
	return new(big.Int).SetUint64(lamports), nil
}

func (a *Adapter) balance(ctx context.Context, client *rpc.Client, account solana.PublicKey) (uint64, *apperrors.AppError) {
	result, err := client.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, rpcFailure(ctx, "getBalance", err)
	}
	return result.Value, nil
}

func (a *Adapter) accountExists(ctx context.Context, client *rpc.Client, account solana.PublicKey) (bool, *apperrors.AppError) {
	_, err := client.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, rpcFailure(ctx, "getAccountInfo", err)
	}
	return true, nil
}

func (a *Adapter) submit(
	ctx context.Context,
	client *rpc.Client,
	signer solana.PrivateKey,
	instruction solana.Instruction,
) (string, *apperrors.AppError) {
	latest, err := client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", rpcFailure(ctx, "getLatestBlockhash", err)
	}

	payer := signer.PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		latest.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return "", apperrors.NewInternal(
			"svm_transaction_build_failed",
			"failed to build transaction",
			map[string]any{"error": err.Error()},
		)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &signer
		}
		return nil
	}); err != nil {
		return "", apperrors.NewInternal(
			"svm_transaction_sign_failed",
			"failed to sign transaction",
			map[string]any{"error": err.Error()},
		)
	}

	signature, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", rpcFailure(ctx, "sendTransaction", err)
	}

	if appErr := a.waitConfirmed(ctx, client, signature); appErr != nil {
		return "", appErr
	}
	return signature.String(), nil
}

func (a *Adapter) waitConfirmed(ctx context.Context, client *rpc.Client, signature solana.Signature) *apperrors.AppError {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := client.GetSignatureStatuses(ctx, false, signature)
		if err != nil {
			return rpcFailure(ctx, "getSignatureStatuses", err)
		}
		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return apperrors.NewUnavailable(
					"chain_tx_reverted",
					"transaction failed",
					map[string]any{"signature": signature.String(), "error": status.Err},
				)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return apperrors.NewUnavailable(
				"chain_rpc_timeout",
				"transaction confirmation timed out",
				map[string]any{"signature": signature.String()},
			)
		case <-ticker.C:
		}
	}
}

func (a *Adapter) endpoint(chain string) (valueobjects.ChainSpec, *rpc.Client, *apperrors.AppError) {
	spec, appErr := valueobjects.LookupChain(chain)
	if appErr != nil {
		return valueobjects.ChainSpec{}, nil, appErr
	}
	if spec.Category != valueobjects.ChainCategorySVM {
		return valueobjects.ChainSpec{}, nil, apperrors.NewValidation(
			"unsupported_chain",
			"chain is not an svm chain",
			map[string]any{"chain": chain},
		)
	}
	client, ok := a.clients[spec.ID]
	if !ok {
		return valueobjects.ChainSpec{}, nil, apperrors.NewUnavailable(
			"chain_rpc_not_configured",
			"no rpc url configured for chain",
			map[string]any{"chain": spec.ID},
		)
	}
	return spec, client, nil
}

func (a *Adapter) logf(format string, args ...any) {
	if a.logger == nil {
		return
	}
	a.logger.Printf(format, args...)
}
