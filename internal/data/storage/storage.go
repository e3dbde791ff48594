package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/songzhibin97/brokerlink/internal/data"
	"github.com/songzhibin97/brokerlink/internal/models"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Compile-time interface check.
var _ data.EventStore = (*SQLStorage)(nil)

var placeholder = regexp.MustCompile(`\$\d+`)

// SQLStorage keeps trading events in Postgres or SQLite. Queries are written
// with Postgres placeholders and rebound for SQLite.
type SQLStorage struct {
	db     *sql.DB
	driver string
}

func NewSQLStorage(driver, dsn string) (*SQLStorage, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported audit driver: %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStorage{db: db, driver: driver}

	if err := s.initTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return s, nil
}

// SaveEvent implements EventStore interface
func (s *SQLStorage) SaveEvent(ctx context.Context, event models.TradingEvent) error {
	query := `
        INSERT INTO trading_events (
            id, type, account_id, order_id, figi,
            operation, lots, price, reason, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        )
    `

	price := decimal.NullDecimal{}
	if event.Price != nil {
		price = decimal.NewNullDecimal(*event.Price)
	}

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		event.ID,
		string(event.Type),
		event.AccountID,
		event.OrderID,
		event.FIGI,
		string(event.Operation),
		event.Lots,
		price,
		event.Reason,
		event.Time.UTC().UnixMicro(),
	)

	if err != nil {
		return fmt.Errorf("failed to save trading event: %w", err)
	}

	return nil
}

// ListEvents implements EventStore interface
func (s *SQLStorage) ListEvents(ctx context.Context, start, end time.Time) ([]models.TradingEvent, error) {
	query := `
        SELECT id, type, account_id, order_id, figi,
               operation, lots, price, reason, created_at
        FROM trading_events
        WHERE created_at BETWEEN $1 AND $2
        ORDER BY created_at ASC, id ASC
    `

	rows, err := s.db.QueryContext(ctx, s.rebind(query), start.UTC().UnixMicro(), end.UTC().UnixMicro())
	if err != nil {
		return nil, fmt.Errorf("failed to query trading events: %w", err)
	}
	defer rows.Close()

	result := make([]models.TradingEvent, 0)
	for rows.Next() {
		var (
			event     models.TradingEvent
			typ, op   string
			price     decimal.NullDecimal
			createdAt int64
		)
		err := rows.Scan(
			&event.ID,
			&typ,
			&event.AccountID,
			&event.OrderID,
			&event.FIGI,
			&op,
			&event.Lots,
			&price,
			&event.Reason,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trading event: %w", err)
		}
		event.Type = models.EventType(typ)
		event.Operation = models.Operation(op)
		if price.Valid {
			p := price.Decimal
			event.Price = &p
		}
		event.Time = time.UnixMicro(createdAt).UTC()
		result = append(result, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trading event rows: %w", err)
	}

	return result, nil
}

// Close implements EventStore interface
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (s *SQLStorage) rebind(query string) string {
	if s.driver == DriverPostgres {
		return query
	}
	return placeholder.ReplaceAllString(query, "?")
}

func (s *SQLStorage) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trading_events (
			id VARCHAR(36) PRIMARY KEY,
			type VARCHAR(32) NOT NULL,
			account_id VARCHAR(64) NOT NULL,
			order_id VARCHAR(64) NOT NULL DEFAULT '',
			figi VARCHAR(32) NOT NULL DEFAULT '',
			operation VARCHAR(8) NOT NULL DEFAULT '',
			lots INTEGER NOT NULL DEFAULT 0,
			price VARCHAR(64),
			reason TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_trading_events_created_at ON trading_events (created_at)`,
	}

	for _, query := range queries {
		_, err := s.db.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
