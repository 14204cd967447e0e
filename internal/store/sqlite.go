package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ Ledger = (*SQLiteStore)(nil)
var _ AchievementStore = (*SQLiteStore)(nil)
var _ EventStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_id   TEXT PRIMARY KEY,
	platform     TEXT NOT NULL,
	initial_cash TEXT NOT NULL,
	current_cash TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	account_id TEXT NOT NULL REFERENCES accounts(account_id),
	symbol     TEXT NOT NULL,
	shares     INTEGER NOT NULL,
	avg_price  TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (account_id, symbol)
);

CREATE TABLE IF NOT EXISTS trades (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_id    TEXT NOT NULL UNIQUE,
	account_id  TEXT NOT NULL REFERENCES accounts(account_id),
	symbol      TEXT NOT NULL,
	side        TEXT NOT NULL,
	shares      INTEGER NOT NULL,
	price       TEXT NOT NULL,
	total       TEXT NOT NULL,
	executed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account_id, seq);

CREATE TABLE IF NOT EXISTS achievements (
	account_id  TEXT NOT NULL,
	name        TEXT NOT NULL,
	unlocked_at INTEGER NOT NULL,
	PRIMARY KEY (account_id, name)
);

CREATE TABLE IF NOT EXISTS clickstream (
	event_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_data TEXT,
	page       TEXT,
	created_at INTEGER NOT NULL
);
`

// SQLiteStore implements Ledger, AchievementStore, and EventStore backed by
// a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore. Transactions take the
// write lock immediately; WAL mode and a busy timeout keep concurrent
// settlements from failing fast on it.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fault("open database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fault("apply schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// fault tags a low-level database error as a storage fault so callers can
// classify it with errors.Is(err, domain.ErrStorage).
func fault(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

func scanDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fault("parse decimal column", err)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// AccountStore implementation
// ---------------------------------------------------------------------------

// CreateAccount inserts a new account row.
func (s *SQLiteStore) CreateAccount(ctx context.Context, acct *domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (account_id, platform, initial_cash, current_cash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		acct.ID, string(acct.Platform), acct.InitialCash.String(), acct.Cash.String(),
		acct.CreatedAt.UnixMilli())
	if err != nil {
		return fault("insert account", err)
	}
	return nil
}

// GetAccount retrieves a single account by its ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT account_id, platform, initial_cash, current_cash, created_at
		 FROM accounts WHERE account_id = ?`, id)
	return scanAccount(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		acct               domain.Account
		platform           string
		initialStr, curStr string
		createdMs          int64
	)
	err := row.Scan(&acct.ID, &platform, &initialStr, &curStr, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fault("scan account", err)
	}
	if acct.InitialCash, err = scanDecimal(initialStr); err != nil {
		return nil, err
	}
	if acct.Cash, err = scanDecimal(curStr); err != nil {
		return nil, err
	}
	acct.Platform = domain.Platform(platform)
	acct.CreatedAt = time.UnixMilli(createdMs)
	return &acct, nil
}

// ---------------------------------------------------------------------------
// PositionStore implementation
// ---------------------------------------------------------------------------

// GetPosition retrieves the position for (account, symbol); nil when absent.
func (s *SQLiteStore) GetPosition(ctx context.Context, accountID, symbol string) (*domain.Position, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT account_id, symbol, shares, avg_price, updated_at
		 FROM positions WHERE account_id = ? AND symbol = ?`, accountID, symbol)
	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return pos, err
}

// ListPositions returns all open positions for the account, sorted by symbol.
func (s *SQLiteStore) ListPositions(ctx context.Context, accountID string) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, symbol, shares, avg_price, updated_at
		 FROM positions WHERE account_id = ? ORDER BY symbol`, accountID)
	if err != nil {
		return nil, fault("query positions", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fault("iterate positions", err)
	}
	return positions, nil
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var (
		pos       domain.Position
		avgStr    string
		updatedMs int64
	)
	err := row.Scan(&pos.AccountID, &pos.Symbol, &pos.Shares, &avgStr, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fault("scan position", err)
	}
	if pos.AvgPrice, err = scanDecimal(avgStr); err != nil {
		return nil, err
	}
	pos.UpdatedAt = time.UnixMilli(updatedMs)
	return &pos, nil
}

// ---------------------------------------------------------------------------
// TradeStore implementation
// ---------------------------------------------------------------------------

// ListTrades returns up to limit trades for the account, newest first.
func (s *SQLiteStore) ListTrades(ctx context.Context, accountID string, limit int) ([]domain.Trade, error) {
	q := `SELECT seq, trade_id, account_id, symbol, side, shares, price, total, executed_at
	      FROM trades WHERE account_id = ? ORDER BY seq DESC`
	args := []any{accountID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fault("query trades", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fault("iterate trades", err)
	}
	return trades, nil
}

// CountTrades returns the number of settled trades for the account.
func (s *SQLiteStore) CountTrades(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fault("count trades", err)
	}
	return n, nil
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var (
		t                domain.Trade
		side             string
		priceStr, totStr string
		executedMs       int64
	)
	err := row.Scan(&t.Seq, &t.ID, &t.AccountID, &t.Symbol, &side, &t.Shares, &priceStr, &totStr, &executedMs)
	if err != nil {
		return nil, fault("scan trade", err)
	}
	if t.Price, err = scanDecimal(priceStr); err != nil {
		return nil, err
	}
	if t.Total, err = scanDecimal(totStr); err != nil {
		return nil, err
	}
	t.Side = domain.Side(side)
	t.ExecutedAt = time.UnixMilli(executedMs)
	return &t, nil
}

// ---------------------------------------------------------------------------
// AchievementStore implementation
// ---------------------------------------------------------------------------

// UnlockAchievement records the achievement, reporting whether it was newly
// unlocked. Re-unlocking is a no-op.
func (s *SQLiteStore) UnlockAchievement(ctx context.Context, accountID, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO achievements (account_id, name, unlocked_at) VALUES (?, ?, ?)
		 ON CONFLICT (account_id, name) DO NOTHING`,
		accountID, name, time.Now().UnixMilli())
	if err != nil {
		return false, fault("unlock achievement", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fault("unlock achievement", err)
	}
	return n > 0, nil
}

// ListAchievements returns the unlocked achievement names, oldest first.
func (s *SQLiteStore) ListAchievements(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM achievements WHERE account_id = ? ORDER BY unlocked_at, name`, accountID)
	if err != nil {
		return nil, fault("query achievements", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fault("scan achievement", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fault("iterate achievements", err)
	}
	return names, nil
}

// ---------------------------------------------------------------------------
// EventStore implementation
// ---------------------------------------------------------------------------

// SaveEvent appends a clickstream row.
func (s *SQLiteStore) SaveEvent(ctx context.Context, ev *domain.Event) error {
	var data any
	if ev.Data != nil {
		b, err := json.Marshal(ev.Data)
		if err != nil {
			return fault("encode event data", err)
		}
		data = string(b)
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clickstream (account_id, event_type, event_data, page, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.AccountID, ev.Type, data, ev.Page, at.UnixMilli())
	if err != nil {
		return fault("insert event", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transactor implementation
// ---------------------------------------------------------------------------

// Transact runs fn inside one database transaction. Domain errors returned
// by fn roll everything back and pass through unchanged; commit and
// statement failures surface as storage faults.
func (s *SQLiteStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fault("begin transaction", err)
	}

	if err := fn(&sqliteTx{ctx: ctx, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fault("commit transaction", err)
	}
	return nil
}

// sqliteTx adapts a database transaction to the Tx interface.
type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqliteTx) Account(id string) (*domain.Account, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT account_id, platform, initial_cash, current_cash, created_at
		 FROM accounts WHERE account_id = ?`, id)
	return scanAccount(row)
}

func (t *sqliteTx) UpdateCash(id string, cash decimal.Decimal) error {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE accounts SET current_cash = ? WHERE account_id = ?`, cash.String(), id)
	if err != nil {
		return fault("update cash", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fault("update cash", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (t *sqliteTx) Position(accountID, symbol string) (*domain.Position, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT account_id, symbol, shares, avg_price, updated_at
		 FROM positions WHERE account_id = ? AND symbol = ?`, accountID, symbol)
	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return pos, err
}

func (t *sqliteTx) PutPosition(pos *domain.Position) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO positions (account_id, symbol, shares, avg_price, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (account_id, symbol) DO UPDATE SET
			shares = excluded.shares,
			avg_price = excluded.avg_price,
			updated_at = excluded.updated_at`,
		pos.AccountID, pos.Symbol, pos.Shares, pos.AvgPrice.String(), pos.UpdatedAt.UnixMilli())
	if err != nil {
		return fault("upsert position", err)
	}
	return nil
}

func (t *sqliteTx) DeletePosition(accountID, symbol string) error {
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM positions WHERE account_id = ? AND symbol = ?`, accountID, symbol)
	if err != nil {
		return fault("delete position", err)
	}
	return nil
}

func (t *sqliteTx) AppendTrade(trade *domain.Trade) (int64, error) {
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO trades (trade_id, account_id, symbol, side, shares, price, total, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.AccountID, trade.Symbol, string(trade.Side), trade.Shares,
		trade.Price.String(), trade.Total.String(), trade.ExecutedAt.UnixMilli())
	if err != nil {
		return 0, fault("append trade", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fault("append trade", err)
	}
	return seq, nil
}

func (t *sqliteTx) CountTrades(accountID string) (int64, error) {
	var n int64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT COUNT(*) FROM trades WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fault("count trades", err)
	}
	return n, nil
}
