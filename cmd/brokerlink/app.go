package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/brokerlink/internal/broker"
	"github.com/songzhibin97/brokerlink/internal/broker/binance"
	"github.com/songzhibin97/brokerlink/internal/broker/tinkoff"
	"github.com/songzhibin97/brokerlink/internal/configs"
	"github.com/songzhibin97/brokerlink/internal/data"
	"github.com/songzhibin97/brokerlink/internal/data/storage"
	"github.com/songzhibin97/brokerlink/internal/models"
	"github.com/songzhibin97/brokerlink/internal/sandbox"
	"github.com/songzhibin97/brokerlink/internal/trading"
)

// App wires the broker client to the trading services.
type App struct {
	accounts    trading.AccountService
	orders      trading.OrderService
	portfolio   trading.PortfolioService
	instruments trading.InstrumentService
	events      data.EventStore // nil when audit storage is off

	out io.Writer
	log *slog.Logger
}

// NewApp builds every component the config asks for and prepares the
// sandbox account when the sandbox is enabled.
func NewApp(ctx context.Context, cfg *configs.Config, out io.Writer, log *slog.Logger) (*App, error) {
	var (
		client broker.Client
		sb     broker.Sandbox
	)
	switch cfg.Broker.Kind {
	case configs.BrokerTinkoff:
		c := tinkoff.New(cfg.RequestOptions(), cfg.Broker.Sandbox.Enabled)
		client, sb = c, c
	case configs.BrokerBinance:
		client = binance.NewBinanceClient(cfg.Broker.APIToken, cfg.Broker.SecretKey, cfg.Broker.Sandbox.Enabled)
	default:
		return nil, fmt.Errorf("unknown broker kind: %q", cfg.Broker.Kind)
	}
	log.Debug("init broker client", "kind", cfg.Broker.Kind, "sandbox", cfg.Broker.Sandbox.Enabled)

	accounts := trading.NewAccountResolver(client, cfg.Broker.Sandbox.Enabled, cfg.Broker.UseIISAccount, log)

	var (
		auditor trading.Auditor = trading.NewLoggingAuditor(log)
		events  data.EventStore
	)
	if cfg.Audit.Driver != "" {
		store, err := storage.NewSQLStorage(cfg.Audit.Driver, cfg.Audit.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit storage: %w", err)
		}
		events = store
		auditor = trading.MultiAuditor{auditor, storage.NewAuditor(store, log)}
		log.Debug("init audit storage", "driver", cfg.Audit.Driver)
	}

	if cfg.Broker.Sandbox.Enabled && sb != nil {
		initializer := sandbox.NewInitializer(sb, accounts, log)
		if err := initializer.Register(ctx); err != nil {
			closeStore(events, log)
			return nil, err
		}
		if err := initializer.Initialize(ctx, cfg.SandboxOptions()); err != nil {
			closeStore(events, log)
			return nil, err
		}
	}

	return &App{
		accounts:    accounts,
		orders:      trading.NewOrderGateway(client, accounts, auditor, log),
		portfolio:   trading.NewPortfolioReader(client, accounts, log),
		instruments: trading.NewInstrumentLookup(client, log),
		events:      events,
		out:         out,
		log:         log,
	}, nil
}

func closeStore(store data.EventStore, log *slog.Logger) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing audit storage", "err", err)
	}
}

func (a *App) Close() {
	closeStore(a.events, a.log)
}

var errUsage = errors.New("usage error")

// Run executes one command and prints its result as JSON.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "accounts":
		account, err := a.accounts.GetTradingAccount(ctx)
		if err != nil {
			return err
		}
		return a.print(account)

	case "orders":
		orders, err := a.orders.GetActiveOrders(ctx)
		if err != nil {
			return err
		}
		return a.print(orders)

	case "cancel":
		return a.cancel(ctx, rest)

	case "buy", "sell":
		return a.place(ctx, cmd, rest)

	case "portfolio":
		return a.showPortfolio(ctx, rest)

	case "instrument":
		if len(rest) != 1 {
			return fmt.Errorf("%w: instrument FIGI", errUsage)
		}
		instrument, ok, err := a.instruments.GetInstrument(ctx, rest[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("instrument %s not found", rest[0])
		}
		return a.print(instrument)

	case "events":
		return a.listEvents(ctx, rest)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

const reasonNotActive = "not an active order"

type cancelView struct {
	trading.CancelResult
	Error string `json:"error,omitempty"`
}

// cancel cancels the given active orders, or all of them when no id is given.
// Ids that are not active are reported as skipped.
func (a *App) cancel(ctx context.Context, ids []string) error {
	orders, err := a.orders.GetActiveOrders(ctx)
	if err != nil {
		return err
	}

	var unknown []string
	if len(ids) > 0 {
		active := make(map[string]models.Order, len(orders))
		for _, o := range orders {
			active[o.ID] = o
		}
		selected := orders[:0:0]
		for _, id := range ids {
			if o, ok := active[id]; ok {
				selected = append(selected, o)
			} else {
				unknown = append(unknown, id)
			}
		}
		orders = selected
	}

	results, cancelErr := a.orders.CancelOrders(ctx, orders)
	views := make([]cancelView, 0, len(results)+len(unknown))
	for _, r := range results {
		v := cancelView{CancelResult: r}
		if r.Err != nil {
			v.Error = r.Err.Error()
		}
		views = append(views, v)
	}
	for _, id := range unknown {
		a.log.WarnContext(ctx, "Order is not active", "order_id", id)
		views = append(views, cancelView{
			CancelResult: trading.CancelResult{OrderID: id, Outcome: trading.CancelOutcomeSkipped},
			Error:        reasonNotActive,
		})
	}
	if err := a.print(views); err != nil {
		return err
	}
	return cancelErr
}

func (a *App) place(ctx context.Context, side string, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: %s FIGI LOTS [PRICE]", errUsage, side)
	}
	figi := args[0]
	lots, err := strconv.Atoi(args[1])
	if err != nil || lots <= 0 {
		return fmt.Errorf("%w: lots must be a positive integer, got %q", errUsage, args[1])
	}

	var price *decimal.Decimal
	if len(args) == 3 {
		p, err := decimal.NewFromString(args[2])
		if err != nil || !p.IsPositive() {
			return fmt.Errorf("%w: price must be a positive number, got %q", errUsage, args[2])
		}
		price = &p
	}

	var order models.Order
	if side == "buy" {
		order, err = a.orders.Buy(ctx, figi, lots, price)
	} else {
		order, err = a.orders.Sell(ctx, figi, lots, price)
	}
	if err != nil {
		return err
	}
	return a.print(order)
}

func (a *App) showPortfolio(ctx context.Context, args []string) error {
	part := ""
	if len(args) > 0 {
		part = args[0]
	}

	switch part {
	case "":
		portfolio, err := a.portfolio.GetPortfolio(ctx)
		if err != nil {
			return err
		}
		return a.print(portfolio)
	case "currencies":
		positions, err := a.portfolio.GetCurrencies(ctx)
		if err != nil {
			return err
		}
		return a.print(positions)
	case "securities":
		positions, err := a.portfolio.GetNonCurrencies(ctx)
		if err != nil {
			return err
		}
		return a.print(positions)
	default:
		return fmt.Errorf("%w: portfolio [currencies|securities]", errUsage)
	}
}

func (a *App) listEvents(ctx context.Context, args []string) error {
	if a.events == nil {
		return errors.New("audit storage is not configured")
	}

	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	since := fs.Duration("since", 24*time.Hour, "how far back to look")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	end := time.Now()
	events, err := a.events.ListEvents(ctx, end.Add(-*since), end)
	if err != nil {
		return err
	}
	return a.print(events)
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
