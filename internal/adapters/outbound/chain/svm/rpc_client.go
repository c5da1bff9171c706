package svm

import (
	"context"
	"errors"

	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// newRPCClients opens one client per configured endpoint. The caller's context
// bounds every request.
func newRPCClients(endpoints map[string]string) map[string]*rpc.Client {
	clients := make(map[string]*rpc.Client, len(endpoints))
	for chain, endpoint := range endpoints {
		clients[chain] = rpc.New(endpoint)
	}
	return clients
}

func rpcFailure(ctx context.Context, method string, err error) *apperrors.AppError {
	details := map[string]any{"method": method, "error": err.Error()}
	if ctx.Err() != nil {
		return apperrors.NewUnavailable("chain_rpc_timeout", "rpc call did not complete in time", details)
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		details["rpc_code"] = rpcErr.Code
		details["rpc_error"] = rpcErr.Message
		return apperrors.NewUnavailable("chain_rpc_error", "rpc endpoint returned error", details)
	}
	return apperrors.NewUnavailable("chain_rpc_error", "failed to call rpc endpoint", details)
}
