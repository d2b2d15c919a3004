// Package memory is a process-local implementation of the settlement unit of work. Units of
// work run one at a time under a single mutex and a failed unit is undone by restoring a
// snapshot taken when it started. It backs the engine and handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/order"
	"github.com/gamevault-settlement/internal/domain/outbox"
	"github.com/gamevault-settlement/internal/domain/topup"
	"github.com/gamevault-settlement/internal/settlement"
)

// Fault is consulted before every repository call made inside a unit of work. A non-nil
// return fails that call.
type Fault func(op string) error

// Store holds every settlement table in memory
type Store struct {
	mu    sync.Mutex
	state *state
	fault Fault
}

type state struct {
	accounts map[uuid.UUID]account.Account
	items    map[uuid.UUID]item.Item
	orders   map[uuid.UUID]order.Order
	entries  []ledger.Entry
	topups   map[string]topup.Transaction
	outbox   []outbox.Message
	outboxID int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		state: &state{
			accounts: map[uuid.UUID]account.Account{},
			items:    map[uuid.UUID]item.Item{},
			orders:   map[uuid.UUID]order.Order{},
			topups:   map[string]topup.Transaction{},
		},
	}
}

// SetFault installs f for subsequent units of work; nil removes it
func (s *Store) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Do runs fn with exclusive access to the store and restores the prior state when fn fails
// or panics.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, st settlement.Stores) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
		if err != nil {
			s.state = snapshot
		}
	}()

	return fn(ctx, s.stores())
}

func (s *Store) stores() settlement.Stores {
	return settlement.Stores{
		Accounts: &accountRepo{s},
		Items:    &itemRepo{s},
		Orders:   &orderRepo{s},
		Ledger:   &ledgerRepo{s},
		TopUps:   &topUpRepo{s},
		Outbox:   &outboxRepo{s},
	}
}

func (s *Store) check(op string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op)
}

func (st *state) clone() *state {
	c := &state{
		accounts: make(map[uuid.UUID]account.Account, len(st.accounts)),
		items:    make(map[uuid.UUID]item.Item, len(st.items)),
		orders:   make(map[uuid.UUID]order.Order, len(st.orders)),
		entries:  append([]ledger.Entry(nil), st.entries...),
		topups:   make(map[string]topup.Transaction, len(st.topups)),
		outbox:   make([]outbox.Message, len(st.outbox)),
		outboxID: st.outboxID,
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.items {
		c.items[k] = copyItem(v)
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.topups {
		c.topups[k] = v
	}
	for i, m := range st.outbox {
		m.Payload = append([]byte(nil), m.Payload...)
		c.outbox[i] = m
	}
	return c
}

func copyItem(it item.Item) item.Item {
	it.Images = append([]string(nil), it.Images...)
	it.Ranks = append([]string(nil), it.Ranks...)
	if it.BuyerID != nil {
		buyer := *it.BuyerID
		it.BuyerID = &buyer
	}
	if it.SoldAt != nil {
		soldAt := *it.SoldAt
		it.SoldAt = &soldAt
	}
	return it
}

// AddAccount stores acc outside any unit of work
func (s *Store) AddAccount(acc *account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[acc.ID] = *acc
}

// AddItem stores it outside any unit of work
func (s *Store) AddItem(it *item.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.items[it.ID] = copyItem(*it)
}

// Account returns a copy of the stored account
func (s *Store) Account(id uuid.UUID) (*account.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.state.accounts[id]
	return &acc, ok
}

// Item returns a copy of the stored item
func (s *Store) Item(id uuid.UUID) (*item.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.state.items[id]
	c := copyItem(it)
	return &c, ok
}

// TopUp returns a copy of the stored top-up
func (s *Store) TopUp(reference string) (*topup.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.state.topups[reference]
	return &tx, ok
}

// TopUps returns every top-up sorted by creation time
func (s *Store) TopUps() []*topup.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*topup.Transaction, 0, len(s.state.topups))
	for _, tx := range s.state.topups {
		tx := tx
		out = append(out, &tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Orders returns every order sorted by creation time
func (s *Store) Orders() []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*order.Order, 0, len(s.state.orders))
	for _, o := range s.state.orders {
		o := o
		out = append(out, &o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Entries returns the ledger of accountID in append order
func (s *Store) Entries(accountID uuid.UUID) []*ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range s.state.entries {
		if e.AccountID == accountID {
			e := e
			out = append(out, &e)
		}
	}
	return out
}

// OutboxMessages returns every outbox message in insertion order
func (s *Store) OutboxMessages() []*outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*outbox.Message, 0, len(s.state.outbox))
	for _, m := range s.state.outbox {
		m := m
		out = append(out, &m)
	}
	return out
}

func errDuplicate(table string, key any) error {
	return fmt.Errorf("duplicate key in %s: %v", table, key)
}
