//go:build !integration

package paymaster

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	valueobjects "paymasterhub/internal/domain/value_objects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, value := range r.values {
		switch target := dest[i].(type) {
		case *string:
			*target = value.(string)
		case *[]byte:
			if value != nil {
				*target = value.([]byte)
			}
		case *bool:
			*target = value.(bool)
		case *int:
			*target = value.(int)
		case *int64:
			*target = value.(int64)
		case *time.Time:
			*target = value.(time.Time)
		case *sql.NullString:
			if value != nil {
				*target = sql.NullString{String: value.(string), Valid: true}
			}
		case *sql.NullTime:
			if value != nil {
				*target = sql.NullTime{Time: value.(time.Time), Valid: true}
			}
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

func paymasterRow(category, status string, resultsJSON []byte) stubRow {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))
	return stubRow{values: []any{
		"pm_1",
		"proj1",
		category,
		[]byte(`["base","ethereum"]`),
		"ethereum",
		"0x52908400098527886E0F7030069857D2E4169EE7",
		[]byte("ciphertext"),
		"0x1111111111111111111111111111111111111111",
		nil,
		nil,
		resultsJSON,
		status,
		true,
		2,
		created.Add(time.Minute),
		nil,
		"rpc down",
		int64(4),
		created,
		created,
	}}
}

func TestScanPaymasterDecodesRow(t *testing.T) {
	row := paymasterRow("EVM", "deployed", []byte(`{"ethereum":{"status":"deployed","contract_address":"0x1111111111111111111111111111111111111111","attempted_at":"2026-03-01T10:00:00Z"}}`))

	paymaster, err := scanPaymaster(row)
	require.NoError(t, err)

	assert.Equal(t, valueobjects.ChainCategoryEVM, paymaster.ChainCategory)
	assert.Equal(t, valueobjects.DeploymentStatusDeployed, paymaster.DeploymentStatus)
	assert.Equal(t, []string{"base", "ethereum"}, paymaster.SupportedChains)
	assert.Equal(t, []byte("ciphertext"), paymaster.EncryptedPrivateKey.Ciphertext())
	require.NotNil(t, paymaster.ContractAddress)
	assert.Nil(t, paymaster.DeploymentTx)
	assert.Nil(t, paymaster.DeadLetteredAt)
	require.NotNil(t, paymaster.NextRetryAt)
	assert.Equal(t, time.UTC, paymaster.NextRetryAt.Location())
	assert.Equal(t, time.UTC, paymaster.CreatedAt.Location())
	require.NotNil(t, paymaster.LastError)
	assert.Equal(t, "rpc down", *paymaster.LastError)
	assert.Equal(t, int64(4), paymaster.Version)
	require.Contains(t, paymaster.DeploymentResults, "ethereum")
	assert.True(t, paymaster.DeploymentResults["ethereum"].Succeeded())
}

func TestScanPaymasterEmptyResultsYieldsEmptyMap(t *testing.T) {
	paymaster, err := scanPaymaster(paymasterRow("EVM", "created", nil))
	require.NoError(t, err)
	assert.NotNil(t, paymaster.DeploymentResults)
	assert.Empty(t, paymaster.DeploymentResults)
}

func TestScanPaymasterRejectsUnknownEnums(t *testing.T) {
	_, err := scanPaymaster(paymasterRow("TVM", "created", nil))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "chain_category"))

	_, err = scanPaymaster(paymasterRow("EVM", "archived", nil))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "deployment_status"))
}

func TestScanPaymasterPropagatesNoRows(t *testing.T) {
	_, err := scanPaymaster(stubRow{err: sql.ErrNoRows})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDecodeChains(t *testing.T) {
	chains, appErr := decodeChains(nil)
	require.Nil(t, appErr)
	assert.Empty(t, chains)

	_, appErr = decodeChains([]byte(`{"not":"a list"}`))
	require.NotNil(t, appErr)
	assert.Equal(t, "paymaster_decode_failed", appErr.Code)
}

func TestNullableHelpers(t *testing.T) {
	assert.Nil(t, nullableTime(nil))
	assert.Nil(t, nullableString(nil))

	local := time.Date(2026, 3, 1, 14, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))
	assert.Equal(t, local.UTC(), nullableTime(&local))

	message := "boom"
	assert.Equal(t, "boom", nullableString(&message))
}
