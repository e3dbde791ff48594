package trading

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/models"
)

// Compile-time interface check.
var _ AccountService = (*AccountResolver)(nil)

// AccountResolver picks the trading account once and keeps it for the
// lifetime of the resolver. In sandbox mode the first account wins; in live
// mode the account type must match the IIS flag.
type AccountResolver struct {
	client  broker.Client
	sandbox bool
	useIIS  bool
	logger  *slog.Logger

	mu     sync.Mutex
	cached atomic.Pointer[models.TradingAccount]
}

// NewAccountResolver creates a resolver over the broker client
func NewAccountResolver(client broker.Client, sandbox, useIIS bool, logger *slog.Logger) *AccountResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountResolver{
		client:  client,
		sandbox: sandbox,
		useIIS:  useIIS,
		logger:  logger,
	}
}

// GetTradingAccount implements AccountService. Concurrent first calls
// perform a single fetch; failed lookups are not cached.
func (r *AccountResolver) GetTradingAccount(ctx context.Context) (models.TradingAccount, error) {
	if acc := r.cached.Load(); acc != nil {
		return *acc, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if acc := r.cached.Load(); acc != nil {
		return *acc, nil
	}

	acc, err := r.retrieve(ctx)
	if err != nil {
		return models.TradingAccount{}, err
	}
	r.cached.Store(&acc)
	return acc, nil
}

func (r *AccountResolver) retrieve(ctx context.Context) (models.TradingAccount, error) {
	r.logger.DebugContext(ctx, "Preparing account information")

	accounts, err := r.client.ListAccounts(ctx)
	if err != nil {
		return models.TradingAccount{}, apiError("failed to get accounts list", err)
	}
	r.logger.DebugContext(ctx, "Got accounts", "count", len(accounts))

	for _, acc := range accounts {
		if r.matches(acc) {
			r.logger.InfoContext(ctx, "Trading account selected", "account_id", acc.ID, "type", acc.Type)
			return models.TradingAccount{ID: acc.ID}, nil
		}
	}
	return models.TradingAccount{}, ErrAccountNotFound
}

func (r *AccountResolver) matches(acc broker.Account) bool {
	if r.sandbox {
		return true
	}
	if r.useIIS {
		return acc.Type == broker.AccountTypeIIS
	}
	return acc.Type == broker.AccountTypeBrokerage
}
