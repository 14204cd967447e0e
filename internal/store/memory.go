package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// Compile-time interface checks.
var _ Ledger = (*MemoryStore)(nil)
var _ AchievementStore = (*MemoryStore)(nil)
var _ EventStore = (*MemoryStore)(nil)

// MemoryStore implements the same surface as SQLiteStore entirely in memory.
// It backs tests and ephemeral runs. Transact buffers every mutation and
// applies the whole batch only when fn succeeds, matching the database's
// rollback semantics.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]*memAccount
	achievements map[string]map[string]bool
	events       []domain.Event
	nextSeq      int64
}

type memAccount struct {
	acct      domain.Account
	positions map[string]domain.Position
	trades    []domain.Trade // append order == seq order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]*memAccount),
		achievements: make(map[string]map[string]bool),
	}
}

// ---------------------------------------------------------------------------
// AccountStore implementation
// ---------------------------------------------------------------------------

func (s *MemoryStore) CreateAccount(_ context.Context, acct *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[acct.ID] = &memAccount{
		acct:      *acct,
		positions: make(map[string]domain.Position),
	}
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	acct := ma.acct
	return &acct, nil
}

// ---------------------------------------------------------------------------
// PositionStore implementation
// ---------------------------------------------------------------------------

func (s *MemoryStore) GetPosition(_ context.Context, accountID, symbol string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	pos, ok := ma.positions[symbol]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (s *MemoryStore) ListPositions(_ context.Context, accountID string) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	positions := make([]domain.Position, 0, len(ma.positions))
	for _, pos := range ma.positions {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions, nil
}

// ---------------------------------------------------------------------------
// TradeStore implementation
// ---------------------------------------------------------------------------

func (s *MemoryStore) ListTrades(_ context.Context, accountID string, limit int) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.accounts[accountID]
	if !ok {
		return nil, nil
	}

	n := len(ma.trades)
	if limit <= 0 || limit > n {
		limit = n
	}
	trades := make([]domain.Trade, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		trades = append(trades, ma.trades[i])
	}
	return trades, nil
}

func (s *MemoryStore) CountTrades(_ context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.accounts[accountID]
	if !ok {
		return 0, nil
	}
	return int64(len(ma.trades)), nil
}

// ---------------------------------------------------------------------------
// AchievementStore implementation
// ---------------------------------------------------------------------------

func (s *MemoryStore) UnlockAchievement(_ context.Context, accountID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.achievements[accountID]
	if set == nil {
		set = make(map[string]bool)
		s.achievements[accountID] = set
	}
	if set[name] {
		return false, nil
	}
	set[name] = true
	return true, nil
}

func (s *MemoryStore) ListAchievements(_ context.Context, accountID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.achievements[accountID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ---------------------------------------------------------------------------
// EventStore implementation
// ---------------------------------------------------------------------------

func (s *MemoryStore) SaveEvent(_ context.Context, ev *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, *ev)
	return nil
}

// Events returns a copy of all recorded events, in arrival order.
func (s *MemoryStore) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ---------------------------------------------------------------------------
// Transactor implementation
// ---------------------------------------------------------------------------

// Transact runs fn against a staged view of the store. The store lock is
// held for the duration, so transactions serialize; staged mutations are
// applied only when fn returns nil.
func (s *MemoryStore) Transact(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:         s,
		cash:      make(map[string]decimal.Decimal),
		positions: make(map[posKey]*domain.Position),
		seq:       s.nextSeq,
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type posKey struct {
	accountID string
	symbol    string
}

// memTx stages mutations over the underlying store. A nil value in
// positions is a delete tombstone.
type memTx struct {
	s         *MemoryStore
	cash      map[string]decimal.Decimal
	positions map[posKey]*domain.Position
	trades    []domain.Trade
	seq       int64
}

func (t *memTx) Account(id string) (*domain.Account, error) {
	ma, ok := t.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	acct := ma.acct
	if cash, ok := t.cash[id]; ok {
		acct.Cash = cash
	}
	return &acct, nil
}

func (t *memTx) UpdateCash(id string, cash decimal.Decimal) error {
	if _, ok := t.s.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	t.cash[id] = cash
	return nil
}

func (t *memTx) Position(accountID, symbol string) (*domain.Position, error) {
	key := posKey{accountID, symbol}
	if staged, ok := t.positions[key]; ok {
		if staged == nil {
			return nil, nil
		}
		pos := *staged
		return &pos, nil
	}
	ma, ok := t.s.accounts[accountID]
	if !ok {
		return nil, nil
	}
	pos, ok := ma.positions[symbol]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (t *memTx) PutPosition(pos *domain.Position) error {
	p := *pos
	t.positions[posKey{pos.AccountID, pos.Symbol}] = &p
	return nil
}

func (t *memTx) DeletePosition(accountID, symbol string) error {
	t.positions[posKey{accountID, symbol}] = nil
	return nil
}

func (t *memTx) AppendTrade(trade *domain.Trade) (int64, error) {
	t.seq++
	tr := *trade
	tr.Seq = t.seq
	t.trades = append(t.trades, tr)
	return tr.Seq, nil
}

func (t *memTx) CountTrades(accountID string) (int64, error) {
	var n int64
	if ma, ok := t.s.accounts[accountID]; ok {
		n = int64(len(ma.trades))
	}
	for _, tr := range t.trades {
		if tr.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// commit applies all staged mutations. Caller holds the store lock.
func (t *memTx) commit() {
	for id, cash := range t.cash {
		if ma, ok := t.s.accounts[id]; ok {
			ma.acct.Cash = cash
		}
	}
	for key, pos := range t.positions {
		ma, ok := t.s.accounts[key.accountID]
		if !ok {
			continue
		}
		if pos == nil {
			delete(ma.positions, key.symbol)
		} else {
			ma.positions[key.symbol] = *pos
		}
	}
	for _, tr := range t.trades {
		if ma, ok := t.s.accounts[tr.AccountID]; ok {
			ma.trades = append(ma.trades, tr)
		}
	}
	t.s.nextSeq = t.seq
}
