//go:build !integration

package use_cases

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	"paymasterhub/internal/domain/entities"
	"paymasterhub/internal/domain/policies"
	valueobjects "paymasterhub/internal/domain/value_objects"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testNow}
}

func (c *fakeClock) NowUTC() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storedPaymaster struct {
	paymaster  entities.Paymaster
	leaseOwner string
	leaseUntil time.Time
}

// memoryStore implements both repositories over one map so project deletes
// cover balances the way the SQL transaction does.
type memoryStore struct {
	mu         sync.Mutex
	paymasters map[string]*storedPaymaster
	balances   map[string]entities.PaymasterBalance

	createErr     *apperrors.AppError
	findErr       *apperrors.AppError
	deleteCalls   int
	creates       int
	transitionHit int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		paymasters: map[string]*storedPaymaster{},
		balances:   map[string]entities.PaymasterBalance{},
	}
}

func clonePaymaster(source entities.Paymaster) entities.Paymaster {
	out := source
	out.SupportedChains = append([]string(nil), source.SupportedChains...)
	out.DeploymentResults = make(map[string]entities.DeploymentResult, len(source.DeploymentResults))
	for chain, result := range source.DeploymentResults {
		out.DeploymentResults[chain] = result
	}
	out.ContractAddress = cloneString(source.ContractAddress)
	out.DeploymentTx = cloneString(source.DeploymentTx)
	out.EntryPointAddress = cloneString(source.EntryPointAddress)
	out.LastError = cloneString(source.LastError)
	out.NextRetryAt = cloneTime(source.NextRetryAt)
	out.DeadLetteredAt = cloneTime(source.DeadLetteredAt)
	return out
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func (s *memoryStore) Create(_ context.Context, paymaster entities.Paymaster) *apperrors.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	key := paymaster.RecordKey()
	if _, ok := s.paymasters[key]; ok {
		return apperrors.NewConflict("duplicate_category", "paymaster already exists", nil)
	}
	s.paymasters[key] = &storedPaymaster{paymaster: clonePaymaster(paymaster)}
	s.creates++
	return nil
}

func (s *memoryStore) FindByProjectAndCategory(
	_ context.Context,
	projectID string,
	category valueobjects.ChainCategory,
) (entities.Paymaster, bool, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return entities.Paymaster{}, false, s.findErr
	}
	stored, ok := s.paymasters[entities.RecordKey(projectID, category)]
	if !ok {
		return entities.Paymaster{}, false, nil
	}
	return clonePaymaster(stored.paymaster), true, nil
}

func (s *memoryStore) FindByProject(_ context.Context, projectID string) ([]entities.Paymaster, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []entities.Paymaster{}
	for _, stored := range s.paymasters {
		if stored.paymaster.ProjectID == projectID {
			out = append(out, clonePaymaster(stored.paymaster))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainCategory < out[j].ChainCategory })
	return out, nil
}

func (s *memoryStore) UpdateChains(
	_ context.Context,
	projectID string,
	category valueobjects.ChainCategory,
	add []string,
	updatedAt time.Time,
) ([]string, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.paymasters[entities.RecordKey(projectID, category)]
	if !ok {
		return nil, apperrors.NewNotFound("paymaster_not_found", "paymaster not found", nil)
	}
	merged, added := entities.MergeChainSets(stored.paymaster.SupportedChains, add)
	if len(added) == 0 {
		return nil, nil
	}
	stored.paymaster.SupportedChains = merged
	stored.paymaster.Version++
	stored.paymaster.UpdatedAt = updatedAt
	return added, nil
}

func (s *memoryStore) RecordChainResult(_ context.Context, update dto.ChainResultUpdate) *apperrors.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.byIDLocked(update.PaymasterID)
	if stored == nil {
		return apperrors.NewNotFound("paymaster_not_found", "paymaster not found", nil)
	}
	stored.paymaster.DeploymentResults[update.Chain] = update.Result
	return nil
}

func (s *memoryStore) SetCanonicalDeploymentIfUnset(
	_ context.Context,
	canonical dto.CanonicalDeployment,
) (bool, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.byIDLocked(canonical.PaymasterID)
	if stored == nil {
		return false, apperrors.NewNotFound("paymaster_not_found", "paymaster not found", nil)
	}
	if stored.paymaster.ContractAddress != nil {
		return false, nil
	}
	contract := canonical.ContractAddress
	tx := canonical.DeploymentTx
	stored.paymaster.ContractAddress = &contract
	stored.paymaster.DeploymentTx = &tx
	if canonical.EntryPointAddress != "" {
		entryPoint := canonical.EntryPointAddress
		stored.paymaster.EntryPointAddress = &entryPoint
	}
	return true, nil
}

func (s *memoryStore) TransitionStatusIfCurrent(
	_ context.Context,
	command dto.TransitionDeploymentStatusCommand,
) (bool, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.byIDLocked(command.ID)
	if stored == nil {
		return false, nil
	}
	if stored.paymaster.DeploymentStatus != command.ExpectedStatus || stored.paymaster.Version != command.ExpectedVersion {
		return false, nil
	}
	stored.paymaster.DeploymentStatus = command.NextStatus
	stored.paymaster.DeploymentAttempts = command.DeploymentAttempts
	stored.paymaster.NextRetryAt = cloneTime(command.NextRetryAt)
	stored.paymaster.DeadLetteredAt = cloneTime(command.DeadLetteredAt)
	stored.paymaster.LastError = cloneString(command.LastError)
	stored.paymaster.Version++
	stored.paymaster.UpdatedAt = command.UpdatedAt
	s.transitionHit++
	return true, nil
}

func (s *memoryStore) Delete(_ context.Context, projectID string) (dto.DeleteProjectResult, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteCalls++
	result := dto.DeleteProjectResult{}
	for key, stored := range s.paymasters {
		if stored.paymaster.ProjectID == projectID {
			delete(s.paymasters, key)
			result.PaymastersDeleted++
		}
	}
	for key, balance := range s.balances {
		if balance.ProjectID == projectID {
			delete(s.balances, key)
			result.BalancesDeleted++
		}
	}
	return result, nil
}

func (s *memoryStore) ListActive(_ context.Context) ([]entities.Paymaster, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []entities.Paymaster{}
	for _, stored := range s.paymasters {
		if stored.paymaster.IsActive {
			out = append(out, clonePaymaster(stored.paymaster))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordKey() < out[j].RecordKey() })
	return out, nil
}

func (s *memoryStore) ClaimRetryDue(
	_ context.Context,
	command dto.ClaimRetryDueCommand,
) ([]entities.Paymaster, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []entities.Paymaster{}
	for _, stored := range s.paymasters {
		paymaster := stored.paymaster
		if paymaster.DeadLetteredAt != nil ||
			paymaster.NextRetryAt == nil ||
			paymaster.NextRetryAt.After(command.Now) {
			continue
		}
		if stored.leaseOwner != "" && stored.leaseUntil.After(command.Now) {
			continue
		}
		if len(out) >= command.Limit {
			break
		}
		stored.leaseOwner = command.LeaseOwner
		stored.leaseUntil = command.LeaseUntil
		out = append(out, clonePaymaster(paymaster))
	}
	return out, nil
}

func (s *memoryStore) ReleaseRetryLease(_ context.Context, id string, leaseOwner string) *apperrors.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.byIDLocked(id)
	if stored != nil && stored.leaseOwner == leaseOwner {
		stored.leaseOwner = ""
		stored.leaseUntil = time.Time{}
	}
	return nil
}

func (s *memoryStore) CountByStatus(_ context.Context) (dto.DeploymentHealthSummary, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := dto.DeploymentHealthSummary{}
	for _, stored := range s.paymasters {
		switch stored.paymaster.DeploymentStatus {
		case valueobjects.DeploymentStatusCreated:
			summary.Created++
		case valueobjects.DeploymentStatusPendingFunding:
			summary.PendingFunding++
		case valueobjects.DeploymentStatusDeployed:
			summary.Deployed++
		case valueobjects.DeploymentStatusFailed:
			summary.Failed++
		}
		if stored.paymaster.DeadLetteredAt != nil {
			summary.DeadLettered++
		}
	}
	return summary, nil
}

func (s *memoryStore) SetActive(
	_ context.Context,
	projectID string,
	category valueobjects.ChainCategory,
	active bool,
	updatedAt time.Time,
) (bool, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.paymasters[entities.RecordKey(projectID, category)]
	if !ok {
		return false, nil
	}
	stored.paymaster.IsActive = active
	stored.paymaster.UpdatedAt = updatedAt
	return true, nil
}

func (s *memoryStore) EnsureRows(_ context.Context, rows []entities.PaymasterBalance) *apperrors.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		key := row.ProjectID + "|" + row.Chain
		if _, ok := s.balances[key]; ok {
			continue
		}
		s.balances[key] = row
	}
	return nil
}

func (s *memoryStore) Upsert(_ context.Context, balance entities.PaymasterBalance) *apperrors.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := balance.ProjectID + "|" + balance.Chain
	if existing, ok := s.balances[key]; ok && existing.LastUpdated.After(balance.LastUpdated) {
		return nil
	}
	s.balances[key] = balance
	return nil
}

func (s *memoryStore) ListByProject(_ context.Context, projectID string) ([]entities.PaymasterBalance, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []entities.PaymasterBalance{}
	for _, balance := range s.balances {
		if balance.ProjectID == projectID {
			out = append(out, balance)
		}
	}
	return out, nil
}

func (s *memoryStore) ListAll(_ context.Context) ([]entities.PaymasterBalance, *apperrors.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entities.PaymasterBalance, 0, len(s.balances))
	for _, balance := range s.balances {
		out = append(out, balance)
	}
	return out, nil
}

func (s *memoryStore) byIDLocked(id string) *storedPaymaster {
	for _, stored := range s.paymasters {
		if stored.paymaster.ID == id {
			return stored
		}
	}
	return nil
}

func (s *memoryStore) paymaster(projectID string, category valueobjects.ChainCategory) (entities.Paymaster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.paymasters[entities.RecordKey(projectID, category)]
	if !ok {
		return entities.Paymaster{}, false
	}
	return clonePaymaster(stored.paymaster), true
}

func (s *memoryStore) balance(projectID, chain string) (entities.PaymasterBalance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[projectID+"|"+chain]
	return balance, ok
}

func (s *memoryStore) mutate(projectID string, category valueobjects.ChainCategory, fn func(*entities.Paymaster)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.paymasters[entities.RecordKey(projectID, category)]; ok {
		fn(&stored.paymaster)
	}
}

type fakeChainAdapter struct {
	mu                 sync.Mutex
	category           valueobjects.ChainCategory
	deployerConfigured bool
	walletBalances     map[string]*big.Int
	deployErrs         map[string]*apperrors.AppError
	fundErr            *apperrors.AppError
	balanceErrs        map[string]*apperrors.AppError
	deployDelay        time.Duration
	deployDelays       map[string]time.Duration
	deployCalls        map[string]int
	fundCalls          []dto.FundFromDeployerInput
	seenKeys           [][]byte
}

func newFakeChainAdapter(category valueobjects.ChainCategory) *fakeChainAdapter {
	return &fakeChainAdapter{
		category:       category,
		walletBalances: map[string]*big.Int{},
		deployErrs:     map[string]*apperrors.AppError{},
		balanceErrs:    map[string]*apperrors.AppError{},
		deployDelays:   map[string]time.Duration{},
		deployCalls:    map[string]int{},
	}
}

func (a *fakeChainAdapter) Category() valueobjects.ChainCategory {
	return a.category
}

func (a *fakeChainAdapter) DeployerConfigured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deployerConfigured
}

func (a *fakeChainAdapter) Deploy(
	ctx context.Context,
	input dto.DeployPaymasterInput,
) (dto.DeployPaymasterOutput, *apperrors.AppError) {
	a.mu.Lock()
	a.deployCalls[input.Chain]++
	a.seenKeys = append(a.seenKeys, append([]byte(nil), input.PrivateKey...))
	deployErr := a.deployErrs[input.Chain]
	delay := a.deployDelay
	if chainDelay, ok := a.deployDelays[input.Chain]; ok {
		delay = chainDelay
	}
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return dto.DeployPaymasterOutput{}, apperrors.NewUnavailable("chain_rpc_error", ctx.Err().Error(), nil)
		case <-time.After(delay):
		}
	}
	if deployErr != nil {
		return dto.DeployPaymasterOutput{}, deployErr
	}
	return dto.DeployPaymasterOutput{
		ContractAddress:   "contract-" + input.Chain,
		TxHash:            "tx-" + input.Chain,
		EntryPointAddress: "entrypoint-" + input.Chain,
	}, nil
}

func (a *fakeChainAdapter) FundFromDeployer(
	_ context.Context,
	input dto.FundFromDeployerInput,
) (dto.FundFromDeployerOutput, *apperrors.AppError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fundCalls = append(a.fundCalls, input)
	if a.fundErr != nil {
		return dto.FundFromDeployerOutput{}, a.fundErr
	}
	current := a.walletBalances[input.Chain]
	if current == nil {
		current = big.NewInt(0)
	}
	a.walletBalances[input.Chain] = new(big.Int).Add(current, input.AmountMinor)
	return dto.FundFromDeployerOutput{TxHash: "fund-" + input.Chain}, nil
}

func (a *fakeChainAdapter) GetNativeBalance(
	_ context.Context,
	chain string,
	_ string,
) (*big.Int, *apperrors.AppError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if appErr := a.balanceErrs[chain]; appErr != nil {
		return nil, appErr
	}
	if balance := a.walletBalances[chain]; balance != nil {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (a *fakeChainAdapter) setBalance(chain string, minor *big.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.walletBalances[chain] = minor
}

func (a *fakeChainAdapter) setDeployErr(chain string, appErr *apperrors.AppError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deployErrs[chain] = appErr
}

func (a *fakeChainAdapter) setDeployDelay(chain string, delay time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deployDelays[chain] = delay
}

func (a *fakeChainAdapter) setDeployerConfigured(configured bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deployerConfigured = configured
}

func (a *fakeChainAdapter) deployCount(chain string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deployCalls[chain]
}

func (a *fakeChainAdapter) fundCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.fundCalls)
}

type fakeCipher struct {
	mu     sync.Mutex
	opened [][]byte
}

func (c *fakeCipher) Seal(plaintext []byte) (valueobjects.EncryptedPrivateKey, *apperrors.AppError) {
	sealed := append([]byte("sealed:"), plaintext...)
	return valueobjects.NewEncryptedPrivateKey(sealed), nil
}

func (c *fakeCipher) Open(
	secret valueobjects.EncryptedPrivateKey,
	use func(plaintext []byte) *apperrors.AppError,
) *apperrors.AppError {
	ciphertext := secret.Ciphertext()
	plaintext := bytes.TrimPrefix(ciphertext, []byte("sealed:"))

	c.mu.Lock()
	c.opened = append(c.opened, plaintext)
	c.mu.Unlock()

	defer wipe(plaintext)
	return use(plaintext)
}

// fakeKeyDeriver derives stable, syntactically valid addresses without curve math.
type fakeKeyDeriver struct {
	mu    sync.Mutex
	calls int
	errs  map[valueobjects.ChainCategory]*apperrors.AppError
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func (d *fakeKeyDeriver) Derive(projectID string, category valueobjects.ChainCategory) (dto.DerivedKey, *apperrors.AppError) {
	d.mu.Lock()
	d.calls++
	deriveErr := d.errs[category]
	d.mu.Unlock()
	if deriveErr != nil {
		return dto.DerivedKey{}, deriveErr
	}

	digest := sha256.Sum256([]byte(projectID + strings.ToLower(category.String())))
	privateKey := append([]byte(nil), digest[:]...)

	switch category {
	case valueobjects.ChainCategoryEVM:
		return dto.DerivedKey{Address: "0x" + hex.EncodeToString(digest[:20]), PrivateKey: privateKey}, nil
	case valueobjects.ChainCategorySVM:
		var builder strings.Builder
		for _, b := range digest {
			builder.WriteByte(base58Alphabet[int(b)%len(base58Alphabet)])
		}
		return dto.DerivedKey{Address: builder.String(), PrivateKey: privateKey}, nil
	default:
		return dto.DerivedKey{}, apperrors.NewValidation("unsupported_category", "unsupported category", nil)
	}
}

type fakeRecordLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	keys  []string
}

func newFakeRecordLocker() *fakeRecordLocker {
	return &fakeRecordLocker{locks: map[string]*sync.Mutex{}}
}

func (l *fakeRecordLocker) Lock(_ context.Context, key string) (func(), *apperrors.AppError) {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.keys = append(l.keys, key)
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock, nil
}

type fakeDeployerLock struct {
	lock     sync.Mutex
	mu       sync.Mutex
	acquired int
}

func (l *fakeDeployerLock) Acquire(_ context.Context, _ valueobjects.ChainCategory) (func(), *apperrors.AppError) {
	l.lock.Lock()

	l.mu.Lock()
	l.acquired++
	l.mu.Unlock()
	return l.lock.Unlock, nil
}

func (l *fakeDeployerLock) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired
}

type fakePriceOracle struct {
	prices map[string]decimal.Decimal
}

func (o fakePriceOracle) PriceUSD(_ context.Context, chain valueobjects.ChainSpec) dto.PriceQuote {
	return dto.PriceQuote{Symbol: chain.Symbol, PriceUSD: o.prices[chain.Symbol], Source: "test", FetchedAt: testNow}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []dto.AlertEvent
}

func (n *fakeNotifier) Notify(_ context.Context, event dto.AlertEvent) *apperrors.AppError {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, 0, len(n.events))
	for _, event := range n.events {
		out = append(out, event.Type)
	}
	return out
}

type provisioningHarness struct {
	store        *memoryStore
	evm          *fakeChainAdapter
	svm          *fakeChainAdapter
	cipher       *fakeCipher
	deriver      *fakeKeyDeriver
	locker       *fakeRecordLocker
	deployerLock *fakeDeployerLock
	notifier     *fakeNotifier
	clock        *fakeClock
	deployer     *PaymasterDeployer
	ids          int
	idMu         sync.Mutex
}

func newProvisioningHarness() *provisioningHarness {
	h := &provisioningHarness{
		store:        newMemoryStore(),
		evm:          newFakeChainAdapter(valueobjects.ChainCategoryEVM),
		svm:          newFakeChainAdapter(valueobjects.ChainCategorySVM),
		cipher:       &fakeCipher{},
		deriver:      &fakeKeyDeriver{},
		locker:       newFakeRecordLocker(),
		deployerLock: &fakeDeployerLock{},
		notifier:     &fakeNotifier{},
		clock:        newFakeClock(),
	}
	h.deployer = NewPaymasterDeployer(PaymasterDeployerDeps{
		Repository:   h.store,
		Adapters:     h.adapters(),
		Cipher:       h.cipher,
		DeployerLock: h.deployerLock,
		Notifier:     h.notifier,
		Clock:        h.clock,
		Settings: DeploymentSettings{
			MinFunding:       map[valueobjects.ChainCategory]decimal.Decimal{},
			ChainCallTimeout: time.Second,
			RetryPolicy: policies.DeploymentRetryPolicy{
				MaxAttempts:    3,
				InitialBackoff: time.Minute,
				MaxBackoff:     10 * time.Minute,
			},
		},
	})
	return h
}

func (h *provisioningHarness) adapters() portsout.ChainAdapterSet {
	return portsout.ChainAdapterSet{
		valueobjects.ChainCategoryEVM: h.evm,
		valueobjects.ChainCategorySVM: h.svm,
	}
}

func (h *provisioningHarness) withMinFunding(evm, svm string) *provisioningHarness {
	h.deployer.settings.MinFunding = map[valueobjects.ChainCategory]decimal.Decimal{
		valueobjects.ChainCategoryEVM: decimal.RequireFromString(evm),
		valueobjects.ChainCategorySVM: decimal.RequireFromString(svm),
	}
	return h
}

func (h *provisioningHarness) provisionerDeps() ProvisionerDeps {
	return ProvisionerDeps{
		Repository:        h.store,
		BalanceRepository: h.store,
		KeyDeriver:        h.deriver,
		Cipher:            h.cipher,
		Locker:            h.locker,
		Deployer:          h.deployer,
		Clock:             h.clock,
		IDGenerator:       h.nextID,
	}
}

func (h *provisioningHarness) retryDeps() RetryDeploymentsDeps {
	return RetryDeploymentsDeps{
		Repository: h.store,
		Locker:     h.locker,
		Deployer:   h.deployer,
		Clock:      h.clock,
	}
}

func (h *provisioningHarness) nextID() string {
	h.idMu.Lock()
	defer h.idMu.Unlock()
	h.ids++
	return "pm-" + big.NewInt(int64(h.ids)).String()
}
