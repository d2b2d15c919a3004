package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/order"
	"github.com/gamevault-settlement/internal/domain/outbox"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/domain/topup"
)

// The repositories below run with Store.mu held by Do, so locking a row is a plain read.

type accountRepo struct{ s *Store }

func (r *accountRepo) Create(_ context.Context, acc *account.Account) error {
	if err := r.s.check("accounts.create"); err != nil {
		return err
	}
	if _, ok := r.s.state.accounts[acc.ID]; ok {
		return errDuplicate("accounts", acc.ID)
	}
	r.s.state.accounts[acc.ID] = *acc
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	if err := r.s.check("accounts.get"); err != nil {
		return nil, err
	}
	acc, ok := r.s.state.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &acc, nil
}

func (r *accountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	if err := r.s.check("accounts.lock"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *accountRepo) UpdateBalance(_ context.Context, acc *account.Account) error {
	if err := r.s.check("accounts.update_balance"); err != nil {
		return err
	}
	stored, ok := r.s.state.accounts[acc.ID]
	if !ok {
		return account.ErrAccountNotFound{AccountID: acc.ID}
	}
	if stored.Version != acc.Version-1 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}
	stored.Balance = acc.Balance
	stored.Version = acc.Version
	stored.UpdatedAt = acc.UpdatedAt
	r.s.state.accounts[acc.ID] = stored
	return nil
}

type itemRepo struct{ s *Store }

func (r *itemRepo) Create(_ context.Context, it *item.Item) error {
	if err := r.s.check("items.create"); err != nil {
		return err
	}
	if _, ok := r.s.state.items[it.ID]; ok {
		return errDuplicate("items", it.ID)
	}
	r.s.state.items[it.ID] = copyItem(*it)
	return nil
}

func (r *itemRepo) GetByID(_ context.Context, id uuid.UUID) (*item.Item, error) {
	if err := r.s.check("items.get"); err != nil {
		return nil, err
	}
	it, ok := r.s.state.items[id]
	if !ok {
		return nil, item.ErrItemNotFound{ItemID: id}
	}
	c := copyItem(it)
	return &c, nil
}

func (r *itemRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	if err := r.s.check("items.lock"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *itemRepo) UpdateStatus(_ context.Context, it *item.Item) error {
	if err := r.s.check("items.update_status"); err != nil {
		return err
	}
	stored, ok := r.s.state.items[it.ID]
	if !ok {
		return item.ErrItemNotFound{ItemID: it.ID}
	}
	if stored.Version != it.Version-1 {
		return item.ErrConcurrentModification{ItemID: it.ID}
	}
	updated := copyItem(*it)
	stored.Status = updated.Status
	stored.BuyerID = updated.BuyerID
	stored.SoldAt = updated.SoldAt
	stored.Version = updated.Version
	stored.UpdatedAt = updated.UpdatedAt
	r.s.state.items[it.ID] = stored
	return nil
}

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(_ context.Context, o *order.Order) error {
	if err := r.s.check("orders.create"); err != nil {
		return err
	}
	if _, ok := r.s.state.orders[o.ID]; ok {
		return errDuplicate("orders", o.ID)
	}
	for _, existing := range r.s.state.orders {
		if existing.ItemID == o.ItemID && existing.Status == shared.OrderStatusCompleted && o.Status == shared.OrderStatusCompleted {
			return errDuplicate("orders.item_id", o.ItemID)
		}
	}
	r.s.state.orders[o.ID] = *o
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	if err := r.s.check("orders.get"); err != nil {
		return nil, err
	}
	o, ok := r.s.state.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound{OrderID: id}
	}
	return &o, nil
}

func (r *orderRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if err := r.s.check("orders.lock"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *orderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status shared.OrderStatus) error {
	if err := r.s.check("orders.update_status"); err != nil {
		return err
	}
	o, ok := r.s.state.orders[id]
	if !ok {
		return order.ErrOrderNotFound{OrderID: id}
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	r.s.state.orders[id] = o
	return nil
}

type ledgerRepo struct{ s *Store }

func (r *ledgerRepo) Create(_ context.Context, entry *ledger.Entry) error {
	if err := r.s.check("ledger.create"); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	for _, existing := range r.s.state.entries {
		if existing.ID == entry.ID {
			return ledger.ErrDuplicateEntry{EntryID: entry.ID}
		}
		if entry.TopUpID != nil && existing.TopUpID != nil && *existing.TopUpID == *entry.TopUpID {
			return ledger.ErrDuplicateEntry{EntryID: entry.ID}
		}
	}
	r.s.state.entries = append(r.s.state.entries, *entry)
	return nil
}

func (r *ledgerRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) ([]*ledger.Entry, error) {
	if err := r.s.check("ledger.get_by_order"); err != nil {
		return nil, err
	}
	var out []*ledger.Entry
	for _, e := range r.s.state.entries {
		if e.OrderID != nil && *e.OrderID == orderID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

type topUpRepo struct{ s *Store }

func (r *topUpRepo) Create(_ context.Context, tx *topup.Transaction) error {
	if err := r.s.check("topups.create"); err != nil {
		return err
	}
	for _, existing := range r.s.state.topups {
		if existing.Reference == tx.Reference || existing.OrderCode == tx.OrderCode {
			return topup.ErrDuplicateReference{Reference: tx.Reference}
		}
	}
	r.s.state.topups[tx.Reference] = *tx
	return nil
}

func (r *topUpRepo) GetByReference(_ context.Context, reference string) (*topup.Transaction, error) {
	if err := r.s.check("topups.get"); err != nil {
		return nil, err
	}
	tx, ok := r.s.state.topups[reference]
	if !ok {
		return nil, topup.ErrTopUpNotFound{Reference: reference}
	}
	return &tx, nil
}

func (r *topUpRepo) LockByReference(ctx context.Context, reference string) (*topup.Transaction, error) {
	if err := r.s.check("topups.lock"); err != nil {
		return nil, err
	}
	return r.GetByReference(ctx, reference)
}

func (r *topUpRepo) GetByOrderCode(_ context.Context, orderCode int64) (*topup.Transaction, error) {
	if err := r.s.check("topups.get_by_order_code"); err != nil {
		return nil, err
	}
	for _, tx := range r.s.state.topups {
		if tx.OrderCode == orderCode {
			return &tx, nil
		}
	}
	return nil, topup.ErrTopUpNotFound{OrderCode: orderCode}
}

func (r *topUpRepo) LockByOrderCode(ctx context.Context, orderCode int64) (*topup.Transaction, error) {
	if err := r.s.check("topups.lock_by_order_code"); err != nil {
		return nil, err
	}
	return r.GetByOrderCode(ctx, orderCode)
}

func (r *topUpRepo) Update(_ context.Context, tx *topup.Transaction) error {
	if err := r.s.check("topups.update"); err != nil {
		return err
	}
	if _, ok := r.s.state.topups[tx.Reference]; !ok {
		return topup.ErrTopUpNotFound{Reference: tx.Reference}
	}
	r.s.state.topups[tx.Reference] = *tx
	return nil
}

func (r *topUpRepo) ExpirePending(_ context.Context, cutoff time.Time) (int64, error) {
	if err := r.s.check("topups.expire"); err != nil {
		return 0, err
	}
	var n int64
	now := time.Now().UTC()
	for ref, tx := range r.s.state.topups {
		if tx.Status == shared.TopUpStatusPending && tx.CreatedAt.Before(cutoff) {
			tx.Status = shared.TopUpStatusExpired
			tx.UpdatedAt = now
			r.s.state.topups[ref] = tx
			n++
		}
	}
	return n, nil
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(_ context.Context, msg *outbox.Message) error {
	if err := r.s.check("outbox.create"); err != nil {
		return err
	}
	r.s.state.outboxID++
	msg.ID = r.s.state.outboxID
	stored := *msg
	stored.Payload = append([]byte(nil), msg.Payload...)
	r.s.state.outbox = append(r.s.state.outbox, stored)
	return nil
}

func (r *outboxRepo) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	if err := r.s.check("outbox.get_pending"); err != nil {
		return nil, err
	}
	var out []*outbox.Message
	for _, m := range r.s.state.outbox {
		if len(out) == limit {
			break
		}
		if m.Status == shared.OutboxStatusPending {
			m := m
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *outboxRepo) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	if err := r.s.check("outbox.update_status"); err != nil {
		return err
	}
	for i := range r.s.state.outbox {
		if r.s.state.outbox[i].ID == id {
			r.s.state.outbox[i].Resolve(status, time.Now().UTC())
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *outboxRepo) IncrementAttempts(_ context.Context, id int64) error {
	if err := r.s.check("outbox.increment_attempts"); err != nil {
		return err
	}
	for i := range r.s.state.outbox {
		if r.s.state.outbox[i].ID == id {
			r.s.state.outbox[i].RecordAttempt(time.Now().UTC())
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}
