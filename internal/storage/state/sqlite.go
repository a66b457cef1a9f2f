package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TalariManohar018/papertrade/internal/activity"
	"github.com/TalariManohar018/papertrade/internal/ledger"
	"github.com/TalariManohar018/papertrade/internal/risk"
	"github.com/TalariManohar018/papertrade/internal/strategy"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS strategies (
	id         TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Entity row names.
const (
	entityWallet    = "wallet"
	entityPositions = "positions"
	entityOrders    = "orders"
	entityTrades    = "trades"
	entityRisk      = "risk"
	entityActivity  = "activity"
	entityMeta      = "meta"
)

// SQLiteStore persists state to a sqlite database file. Each entity kind
// is one JSON row; strategies get their own table for per-id saves. The
// connection pool is capped at one writer, which sqlite requires anyway.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string, logger ...*zap.Logger) (*SQLiteStore, error) {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	l.Info("sqlite state store ready", zap.String("path", path))
	return &SQLiteStore{db: db, logger: l}, nil
}

func (s *SQLiteStore) saveEntity(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	return nil
}

// loadEntity reports whether the entity row existed.
func (s *SQLiteStore) loadEntity(ctx context.Context, name string, v any) (bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", name, err)
	}
	return true, nil
}

func (s *SQLiteStore) SaveWallet(ctx context.Context, w ledger.WalletState) error {
	return s.saveEntity(ctx, entityWallet, w)
}

func (s *SQLiteStore) LoadWallet(ctx context.Context) (ledger.WalletState, bool, error) {
	var w ledger.WalletState
	ok, err := s.loadEntity(ctx, entityWallet, &w)
	return w, ok, err
}

func (s *SQLiteStore) SavePositions(ctx context.Context, positions []ledger.Position) error {
	return s.saveEntity(ctx, entityPositions, positions)
}

func (s *SQLiteStore) LoadPositions(ctx context.Context) ([]ledger.Position, error) {
	var positions []ledger.Position
	_, err := s.loadEntity(ctx, entityPositions, &positions)
	return positions, err
}

func (s *SQLiteStore) SaveOrders(ctx context.Context, orders []ledger.Order) error {
	return s.saveEntity(ctx, entityOrders, orders)
}

func (s *SQLiteStore) LoadOrders(ctx context.Context) ([]ledger.Order, error) {
	var orders []ledger.Order
	_, err := s.loadEntity(ctx, entityOrders, &orders)
	return orders, err
}

func (s *SQLiteStore) SaveTrades(ctx context.Context, trades []ledger.Trade) error {
	return s.saveEntity(ctx, entityTrades, trades)
}

func (s *SQLiteStore) LoadTrades(ctx context.Context) ([]ledger.Trade, error) {
	var trades []ledger.Trade
	_, err := s.loadEntity(ctx, entityTrades, &trades)
	return trades, err
}

func (s *SQLiteStore) SaveRisk(ctx context.Context, st risk.State) error {
	return s.saveEntity(ctx, entityRisk, st)
}

func (s *SQLiteStore) LoadRisk(ctx context.Context) (risk.State, bool, error) {
	var st risk.State
	ok, err := s.loadEntity(ctx, entityRisk, &st)
	return st, ok, err
}

func (s *SQLiteStore) SaveStrategy(ctx context.Context, def strategy.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding strategy: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO strategies (id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		def.ID, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving strategy %s: %w", def.ID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteStrategy(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting strategy %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) LoadStrategies(ctx context.Context) ([]strategy.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM strategies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading strategies: %w", err)
	}
	defer rows.Close()

	var defs []strategy.Definition
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning strategy: %w", err)
		}
		var def strategy.Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("decoding strategy: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (s *SQLiteStore) SaveActivity(ctx context.Context, events []activity.Event) error {
	return s.saveEntity(ctx, entityActivity, events)
}

func (s *SQLiteStore) LoadActivity(ctx context.Context) ([]activity.Event, error) {
	var events []activity.Event
	_, err := s.loadEntity(ctx, entityActivity, &events)
	return events, err
}

// SaveState writes the whole snapshot in one transaction.
func (s *SQLiteStore) SaveState(ctx context.Context, st State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	put := func(name string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO entities (name, data, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			name, data, now)
		return err
	}

	if err := put(entityWallet, st.Wallet); err != nil {
		return err
	}
	if err := put(entityPositions, st.Positions); err != nil {
		return err
	}
	if err := put(entityOrders, st.Orders); err != nil {
		return err
	}
	if err := put(entityTrades, st.Trades); err != nil {
		return err
	}
	if err := put(entityRisk, st.Risk); err != nil {
		return err
	}
	if err := put(entityActivity, st.Activity); err != nil {
		return err
	}
	if err := put(entityMeta, map[string]any{"saved_at": st.SavedAt}); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM strategies`); err != nil {
		return fmt.Errorf("clearing strategies: %w", err)
	}
	for _, def := range st.Strategies {
		data, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("encoding strategy %s: %w", def.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO strategies (id, data, updated_at) VALUES (?, ?, ?)`,
			def.ID, data, now); err != nil {
			return fmt.Errorf("saving strategy %s: %w", def.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadState(ctx context.Context) (*State, error) {
	st := &State{}

	var ok bool
	var err error
	if _, err = s.loadEntity(ctx, entityWallet, &st.Wallet); err != nil {
		return nil, err
	}
	if _, err = s.loadEntity(ctx, entityPositions, &st.Positions); err != nil {
		return nil, err
	}
	if _, err = s.loadEntity(ctx, entityOrders, &st.Orders); err != nil {
		return nil, err
	}
	if _, err = s.loadEntity(ctx, entityTrades, &st.Trades); err != nil {
		return nil, err
	}
	if _, err = s.loadEntity(ctx, entityRisk, &st.Risk); err != nil {
		return nil, err
	}
	if _, err = s.loadEntity(ctx, entityActivity, &st.Activity); err != nil {
		return nil, err
	}
	meta := struct {
		SavedAt time.Time `json:"saved_at"`
	}{}
	if ok, err = s.loadEntity(ctx, entityMeta, &meta); err != nil {
		return nil, err
	}
	if ok {
		st.SavedAt = meta.SavedAt
	}

	if st.Strategies, err = s.LoadStrategies(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return fmt.Errorf("clearing entities: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM strategies`); err != nil {
		return fmt.Errorf("clearing strategies: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
