//go:build !integration

package svm

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"paymasterhub/internal/application/dto"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSolanaRPC struct {
	mu       sync.Mutex
	balances map[string]uint64
	accounts map[string]string
	sent     [][]byte
	txErr    any
	rpcErr   map[string]any
}

func newFakeSolanaRPC(t *testing.T) (*fakeSolanaRPC, *httptest.Server) {
	t.Helper()
	fake := &fakeSolanaRPC{
		balances: map[string]uint64{},
		accounts: map[string]string{},
	}
	server := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeSolanaRPC) serve(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if f.rpcErr != nil {
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": request.ID, "error": f.rpcErr})
		return
	}

	slot := map[string]any{"slot": 1}
	var result any
	switch request.Method {
	case "getBalance":
		var address string
		_ = json.Unmarshal(request.Params[0], &address)
		result = map[string]any{"context": slot, "value": f.balances[address]}
	case "getAccountInfo":
		var address string
		_ = json.Unmarshal(request.Params[0], &address)
		owner, ok := f.accounts[address]
		if !ok {
			result = map[string]any{"context": slot, "value": nil}
			break
		}
		result = map[string]any{"context": slot, "value": map[string]any{
			"data":       []string{"", "base64"},
			"executable": false,
			"lamports":   1_000_000,
			"owner":      owner,
			"rentEpoch":  0,
			"space":      0,
		}}
	case "getLatestBlockhash":
		result = map[string]any{"context": slot, "value": map[string]any{
			"blockhash":            solana.Hash{7}.String(),
			"lastValidBlockHeight": 10,
		}}
	case "sendTransaction":
		var encoded string
		_ = json.Unmarshal(request.Params[0], &encoded)
		raw, _ := base64.StdEncoding.DecodeString(encoded)
		f.sent = append(f.sent, raw)
		result = base58.Encode(raw[1:65])
	case "getSignatureStatuses":
		result = map[string]any{"context": slot, "value": []any{map[string]any{
			"slot":               1,
			"confirmations":      nil,
			"err":                f.txErr,
			"confirmationStatus": "confirmed",
		}}}
	default:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      request.ID,
			"error":   map[string]any{"code": -32601, "message": "method not found"},
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": request.ID, "result": result})
}

func (f *fakeSolanaRPC) sentTransactions(t *testing.T) []*solana.Transaction {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	txs := make([]*solana.Transaction, 0, len(f.sent))
	for _, raw := range f.sent {
		tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
		require.NoError(t, err)
		require.NoError(t, tx.VerifySignatures())
		txs = append(txs, tx)
	}
	return txs
}

func newSVMTestAdapter(t *testing.T, serverURL string, deployerKey string) (*Adapter, solana.PublicKey) {
	t.Helper()
	_, program := testKey(40)
	_, entryPoint := testKey(41)

	adapter, appErr := NewAdapter(Config{
		RPCURLs:             map[string]string{"solana": serverURL},
		ProgramID:           program.String(),
		EntryPointProgramID: entryPoint.String(),
		DeployerPrivateKey:  deployerKey,
		ConfirmPollInterval: time.Millisecond,
	}, nil)
	require.Nil(t, appErr)
	return adapter, program
}

func TestSVMDeployInitializesPaymasterAccount(t *testing.T) {
	fake, server := newFakeSolanaRPC(t)
	adapter, program := newSVMTestAdapter(t, server.URL, "")
	private, owner := testKey(42)

	output, appErr := adapter.Deploy(context.Background(), dto.DeployPaymasterInput{
		Chain:      "solana",
		Address:    owner.String(),
		PrivateKey: private,
	})
	require.Nil(t, appErr)

	pda, _, err := paymasterAddress(owner, program)
	require.NoError(t, err)
	assert.Equal(t, pda.String(), output.ContractAddress)

	sent := fake.sentTransactions(t)
	require.Len(t, sent, 1)
	tx := sent[0]
	assert.Equal(t, tx.Signatures[0].String(), output.TxHash)
	assert.Equal(t, owner, tx.Message.AccountKeys[0], "owner pays")
	assert.Contains(t, tx.Message.AccountKeys, pda)
	assert.Contains(t, tx.Message.AccountKeys, program)
	assert.Equal(t, solana.Hash{7}, tx.Message.RecentBlockhash)
}

func TestSVMDeploySkipsInitializedAccount(t *testing.T) {
	fake, server := newFakeSolanaRPC(t)
	adapter, program := newSVMTestAdapter(t, server.URL, "")
	private, owner := testKey(43)
	pda, _, err := paymasterAddress(owner, program)
	require.NoError(t, err)
	fake.accounts[pda.String()] = program.String()

	output, appErr := adapter.Deploy(context.Background(), dto.DeployPaymasterInput{
		Chain:      "solana",
		Address:    owner.String(),
		PrivateKey: private,
	})
	require.Nil(t, appErr)
	assert.Equal(t, pda.String(), output.ContractAddress)
	assert.Empty(t, output.TxHash)
	assert.Empty(t, fake.sentTransactions(t))
}

func TestSVMDeployReportsFailedTransaction(t *testing.T) {
	fake, server := newFakeSolanaRPC(t)
	fake.txErr = map[string]any{"InstructionError": []any{0, "Custom"}}
	adapter, _ := newSVMTestAdapter(t, server.URL, "")
	private, owner := testKey(44)

	_, appErr := adapter.Deploy(context.Background(), dto.DeployPaymasterInput{
		Chain:      "solana",
		Address:    owner.String(),
		PrivateKey: private,
	})
	require.NotNil(t, appErr)
	assert.Equal(t, "chain_tx_reverted", appErr.Code)
}

func TestSVMDeployReportsRPCError(t *testing.T) {
	fake, server := newFakeSolanaRPC(t)
	fake.rpcErr = map[string]any{"code": -32005, "message": "node is behind"}
	adapter, _ := newSVMTestAdapter(t, server.URL, "")
	private, owner := testKey(49)

	_, appErr := adapter.Deploy(context.Background(), dto.DeployPaymasterInput{
		Chain:      "solana",
		Address:    owner.String(),
		PrivateKey: private,
	})
	require.NotNil(t, appErr)
	assert.Equal(t, "chain_rpc_error", appErr.Code)
	assert.Equal(t, "getAccountInfo", appErr.Details["method"])
}

func TestSVMDeployTimesOutWithCanceledContext(t *testing.T) {
	_, server := newFakeSolanaRPC(t)
	adapter, _ := newSVMTestAdapter(t, server.URL, "")
	private, owner := testKey(50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, appErr := adapter.Deploy(ctx, dto.DeployPaymasterInput{
		Chain:      "solana",
		Address:    owner.String(),
		PrivateKey: private,
	})
	require.NotNil(t, appErr)
	assert.Equal(t, "chain_rpc_timeout", appErr.Code)
}

func TestSVMDeployRequiresProgramID(t *testing.T) {
	adapter, appErr := NewAdapter(Config{RPCURLs: map[string]string{"solana": "http://localhost"}}, nil)
	require.Nil(t, appErr)
	private, _ := testKey(45)

	_, appErr = adapter.Deploy(context.Background(), dto.DeployPaymasterInput{Chain: "solana", PrivateKey: private})
	require.NotNil(t, appErr)
	assert.Equal(t, "svm_program_not_configured", appErr.Code)
}

func TestSVMNewAdapterRejectsInvalidProgramID(t *testing.T) {
	_, appErr := NewAdapter(Config{ProgramID: "not-base58-0OIl"}, nil)
	require.NotNil(t, appErr)
	assert.Equal(t, "svm_program_id_invalid", appErr.Code)
}

func TestSVMFundFromDeployer(t *testing.T) {
	deployerPrivate, deployer := testKey(46)
	_, target := testKey(47)
	deployerKey := deployerPrivate.String()

	t.Run("insufficient balance", func(t *testing.T) {
		fake, server := newFakeSolanaRPC(t)
		fake.balances[deployer.String()] = 50_000_000
		adapter, _ := newSVMTestAdapter(t, server.URL, deployerKey)

		_, appErr := adapter.FundFromDeployer(context.Background(), dto.FundFromDeployerInput{
			Chain: "solana", Address: target.String(), AmountMinor: big.NewInt(50_000_000),
		})
		require.NotNil(t, appErr)
		assert.Equal(t, "insufficient_deployer_balance", appErr.Code)
		assert.Empty(t, fake.sentTransactions(t))
	})

	t.Run("transfers lamports", func(t *testing.T) {
		fake, server := newFakeSolanaRPC(t)
		fake.balances[deployer.String()] = 1_000_000_000
		adapter, _ := newSVMTestAdapter(t, server.URL, deployerKey)
		require.True(t, adapter.DeployerConfigured())

		output, appErr := adapter.FundFromDeployer(context.Background(), dto.FundFromDeployerInput{
			Chain: "solana", Address: target.String(), AmountMinor: big.NewInt(50_000_000),
		})
		require.Nil(t, appErr)

		sent := fake.sentTransactions(t)
		require.Len(t, sent, 1)
		tx := sent[0]
		assert.Equal(t, tx.Signatures[0].String(), output.TxHash)
		require.Len(t, tx.Message.AccountKeys, 3)
		assert.Equal(t, deployer, tx.Message.AccountKeys[0])
		assert.Equal(t, target, tx.Message.AccountKeys[1])
		assert.Equal(t, solana.SystemProgramID, tx.Message.AccountKeys[2])

		require.Len(t, tx.Message.Instructions, 1)
		data := []byte(tx.Message.Instructions[0].Data)
		require.Len(t, data, 12)
		assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[:4]), "system transfer")
		assert.Equal(t, uint64(50_000_000), binary.LittleEndian.Uint64(data[4:]))
	})

	t.Run("rejects invalid target", func(t *testing.T) {
		_, server := newFakeSolanaRPC(t)
		adapter, _ := newSVMTestAdapter(t, server.URL, deployerKey)

		_, appErr := adapter.FundFromDeployer(context.Background(), dto.FundFromDeployerInput{
			Chain: "solana", Address: "0xabc", AmountMinor: big.NewInt(1),
		})
		require.NotNil(t, appErr)
		assert.Equal(t, "invalid_address", appErr.Code)
	})
}

func TestSVMGetNativeBalance(t *testing.T) {
	fake, server := newFakeSolanaRPC(t)
	_, owner := testKey(48)
	fake.balances[owner.String()] = 60_000_000
	adapter, _ := newSVMTestAdapter(t, server.URL, "")

	balance, appErr := adapter.GetNativeBalance(context.Background(), "solana", owner.String())
	require.Nil(t, appErr)
	assert.Equal(t, int64(60_000_000), balance.Int64())

	_, appErr = adapter.GetNativeBalance(context.Background(), "solana-devnet", owner.String())
	require.NotNil(t, appErr)
	assert.Equal(t, "chain_rpc_not_configured", appErr.Code)

	_, appErr = adapter.GetNativeBalance(context.Background(), "ethereum", owner.String())
	require.NotNil(t, appErr)
	assert.Equal(t, "unsupported_chain", appErr.Code)
}
