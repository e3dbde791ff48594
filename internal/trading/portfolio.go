package trading

import (
	"context"
	"log/slog"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/models"
)

// Compile-time interface check.
var _ PortfolioService = (*PortfolioReader)(nil)

// PortfolioReader reads currency and securities holdings of the trading account
type PortfolioReader struct {
	client   broker.Client
	accounts AccountService
	logger   *slog.Logger
}

func NewPortfolioReader(client broker.Client, accounts AccountService, logger *slog.Logger) *PortfolioReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortfolioReader{client: client, accounts: accounts, logger: logger}
}

// GetPortfolio joins currency and non-currency parts, currencies first.
func (p *PortfolioReader) GetPortfolio(ctx context.Context) (models.Portfolio, error) {
	currencies, err := p.GetCurrencies(ctx)
	if err != nil {
		return models.Portfolio{}, err
	}
	securities, err := p.GetNonCurrencies(ctx)
	if err != nil {
		return models.Portfolio{}, err
	}

	positions := make([]models.PortfolioPosition, 0, len(currencies)+len(securities))
	positions = append(positions, currencies...)
	positions = append(positions, securities...)
	return models.Portfolio{Positions: positions}, nil
}

// GetCurrencies implements PortfolioService
func (p *PortfolioReader) GetCurrencies(ctx context.Context) ([]models.PortfolioPosition, error) {
	account, err := p.accounts.GetTradingAccount(ctx)
	if err != nil {
		return nil, err
	}

	currencies, err := p.client.PortfolioCurrencies(ctx, account.ID)
	if err != nil {
		return nil, apiError("failed to get portfolio currencies", err)
	}
	p.logger.DebugContext(ctx, "Got portfolio currencies", "count", len(currencies))

	result := make([]models.PortfolioPosition, 0, len(currencies))
	for _, c := range currencies {
		result = append(result, mapCurrencyPosition(c))
	}
	return result, nil
}

// GetNonCurrencies implements PortfolioService
func (p *PortfolioReader) GetNonCurrencies(ctx context.Context) ([]models.PortfolioPosition, error) {
	account, err := p.accounts.GetTradingAccount(ctx)
	if err != nil {
		return nil, err
	}

	positions, err := p.client.PortfolioPositions(ctx, account.ID)
	if err != nil {
		return nil, apiError("failed to get portfolio positions", err)
	}
	p.logger.DebugContext(ctx, "Got portfolio positions", "count", len(positions))

	result := make([]models.PortfolioPosition, 0, len(positions))
	for _, pos := range positions {
		mapped, err := mapSecurityPosition(pos)
		if err != nil {
			return nil, apiError("failed to map position "+pos.FIGI, err)
		}
		result = append(result, mapped)
	}
	return result, nil
}
