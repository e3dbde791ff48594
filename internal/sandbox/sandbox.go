// Package sandbox prepares a sandbox brokerage account before trading starts.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/models"
	"github.com/songzhibin97/brokerlink/internal/trading"
)

// Options 沙盒初始化参数
type Options struct {
	Enabled        bool
	ClearOnStartup bool
	// InitBalance is set on the account when not nil.
	InitBalance  *decimal.Decimal
	InitCurrency models.Currency
}

type Initializer struct {
	sandbox  broker.Sandbox
	accounts trading.AccountService
	logger   *slog.Logger
}

func NewInitializer(sandbox broker.Sandbox, accounts trading.AccountService, logger *slog.Logger) *Initializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Initializer{sandbox: sandbox, accounts: accounts, logger: logger}
}

// Register creates the sandbox account with the broker's default account
// type. It must run before the account is resolved.
func (i *Initializer) Register(ctx context.Context) error {
	account, err := i.sandbox.Register(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to register sandbox account: %w", err)
	}
	i.logger.DebugContext(ctx, "Sandbox registered", "account_id", account.ID)
	return nil
}

// Initialize clears the portfolio and sets the starting balance as opts
// asks. It does nothing when the sandbox is disabled.
func (i *Initializer) Initialize(ctx context.Context, opts Options) error {
	if !opts.Enabled {
		return nil
	}

	if opts.ClearOnStartup {
		accountID, err := i.accountID(ctx)
		if err != nil {
			return err
		}
		i.logger.InfoContext(ctx, "Clearing sandbox portfolio", "account_id", accountID)
		if err := i.sandbox.Clear(ctx, accountID); err != nil {
			return fmt.Errorf("failed to clear sandbox portfolio: %w", err)
		}
		i.logger.InfoContext(ctx, "Portfolio cleared")
	}

	if opts.InitBalance != nil {
		accountID, err := i.accountID(ctx)
		if err != nil {
			return err
		}
		currency := opts.InitCurrency
		if currency == "" {
			currency = models.CurrencyRUB
		}
		i.logger.InfoContext(ctx, "Initializing sandbox balance", "currency", currency, "balance", opts.InitBalance.String())
		balance := broker.CurrencyBalance{Currency: string(currency), Balance: *opts.InitBalance}
		if err := i.sandbox.SetCurrencyBalance(ctx, balance, accountID); err != nil {
			return fmt.Errorf("failed to set sandbox balance: %w", err)
		}
		i.logger.InfoContext(ctx, "Sandbox account initialized")
	}

	return nil
}

func (i *Initializer) accountID(ctx context.Context) (string, error) {
	account, err := i.accounts.GetTradingAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("account not found while trying to initialize sandbox: %w", err)
	}
	return account.ID, nil
}
