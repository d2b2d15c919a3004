package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/shared"
)

const (
	// LedgerCollectionName is the name of the ledger projection collection in MongoDB
	LedgerCollectionName = "ledger_entries"
)

// entryDocument is the stored shape of a ledger entry. Money is Decimal128 so the
// projection can be aggregated server-side without float rounding.
type entryDocument struct {
	ID            string               `bson:"_id"`
	AccountID     string               `bson:"account_id"`
	Type          string               `bson:"type"`
	Amount        primitive.Decimal128 `bson:"amount"`
	BalanceBefore primitive.Decimal128 `bson:"balance_before"`
	BalanceAfter  primitive.Decimal128 `bson:"balance_after"`
	Status        string               `bson:"status"`
	OrderID       string               `bson:"order_id,omitempty"`
	TopUpID       string               `bson:"topup_id,omitempty"`
	Description   string               `bson:"description"`
	CreatedAt     time.Time            `bson:"created_at"`
}

func toDocument(e *ledger.Entry) (*entryDocument, error) {
	amount, err := primitive.ParseDecimal128(e.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("failed to encode amount: %w", err)
	}
	before, err := primitive.ParseDecimal128(e.BalanceBefore.String())
	if err != nil {
		return nil, fmt.Errorf("failed to encode balance before: %w", err)
	}
	after, err := primitive.ParseDecimal128(e.BalanceAfter.String())
	if err != nil {
		return nil, fmt.Errorf("failed to encode balance after: %w", err)
	}

	doc := &entryDocument{
		ID:            e.ID.String(),
		AccountID:     e.AccountID.String(),
		Type:          string(e.Type),
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Status:        string(e.Status),
		Description:   e.Description,
		CreatedAt:     e.CreatedAt.UTC(),
	}
	if e.OrderID != nil {
		doc.OrderID = e.OrderID.String()
	}
	if e.TopUpID != nil {
		doc.TopUpID = e.TopUpID.String()
	}
	return doc, nil
}

func (d *entryDocument) toEntry() (*ledger.Entry, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid entry id %q: %w", d.ID, err)
	}
	accountID, err := uuid.Parse(d.AccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid account id %q: %w", d.AccountID, err)
	}

	entry := &ledger.Entry{
		ID:          id,
		AccountID:   accountID,
		Type:        shared.EntryType(d.Type),
		Status:      shared.EntryStatus(d.Status),
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
	if entry.Amount, err = decimal.NewFromString(d.Amount.String()); err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if entry.BalanceBefore, err = decimal.NewFromString(d.BalanceBefore.String()); err != nil {
		return nil, fmt.Errorf("invalid balance before: %w", err)
	}
	if entry.BalanceAfter, err = decimal.NewFromString(d.BalanceAfter.String()); err != nil {
		return nil, fmt.Errorf("invalid balance after: %w", err)
	}
	if d.OrderID != "" {
		orderID, err := uuid.Parse(d.OrderID)
		if err != nil {
			return nil, fmt.Errorf("invalid order id %q: %w", d.OrderID, err)
		}
		entry.OrderID = &orderID
	}
	if d.TopUpID != "" {
		topUpID, err := uuid.Parse(d.TopUpID)
		if err != nil {
			return nil, fmt.Errorf("invalid top-up id %q: %w", d.TopUpID, err)
		}
		entry.TopUpID = &topUpID
	}
	return entry, nil
}

// LedgerRepository implements the ledger.ProjectionRepository interface for MongoDB
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger projection repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes entry keyed by its id, so replaying an outbox message is harmless
func (r *LedgerRepository) Upsert(ctx context.Context, entry *ledger.Entry) error {
	doc, err := toDocument(entry)
	if err != nil {
		return err
	}

	collection := r.db.Collection(LedgerCollectionName)
	_, err = collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert ledger entry",
			"entry_id", entry.ID.String(),
			"error", err)
		return fmt.Errorf("failed to upsert ledger entry: %w", err)
	}

	return nil
}

// GetByID retrieves a projected entry
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	var doc entryDocument
	err := collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry",
			"entry_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return doc.toEntry()
}

// GetByAccountID retrieves paginated ledger entries for an account.
// Results are sorted by creation time in descending order (newest first).
func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	filter := bson.M{"account_id": accountID.String()}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode ledger entries",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}

	entries := make([]*ledger.Entry, 0, len(docs))
	for i := range docs {
		entry, err := docs[i].toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CountByAccountID counts the total number of ledger entries for an account
func (r *LedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"account_id": accountID.String()})
	if err != nil {
		r.logger.Error("Failed to count ledger entries",
			"account_id", accountID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}
