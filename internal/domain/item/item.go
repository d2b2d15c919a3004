package item

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/shared"
)

var (
	ErrEmptyTitle    = errors.New("title cannot be empty")
	ErrNegativePrice = errors.New("price cannot be negative")
)

// Item is a game-account listing. Images and Ranks are ordered sequences persisted as text[].
type Item struct {
	ID        uuid.UUID         `json:"id"`
	Title     string            `json:"title"`
	Game      string            `json:"game"`
	Price     decimal.Decimal   `json:"price"`
	Status    shared.ItemStatus `json:"status"`
	BuyerID   *uuid.UUID        `json:"buyer_id,omitempty"`
	Images    []string          `json:"images"`
	Ranks     []string          `json:"ranks"`
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	SoldAt    *time.Time        `json:"sold_at,omitempty"`
}

// NewItem creates an AVAILABLE listing
func NewItem(title, game string, price decimal.Decimal, images, ranks []string) (*Item, error) {
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if price.IsNegative() {
		return nil, ErrNegativePrice
	}
	if images == nil {
		images = []string{}
	}
	if ranks == nil {
		ranks = []string{}
	}

	now := time.Now().UTC()
	return &Item{
		ID:        uuid.New(),
		Title:     title,
		Game:      game,
		Price:     price,
		Status:    shared.ItemStatusAvailable,
		Images:    images,
		Ranks:     ranks,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsAvailable reports whether the item can be purchased
func (i *Item) IsAvailable() bool {
	return i.Status == shared.ItemStatusAvailable
}

// MarkSold transitions AVAILABLE -> SOLD and records the buyer. Any other starting state
// fails with shared.ErrItemUnavailable so an item can only ever be sold once.
func (i *Item) MarkSold(buyerID uuid.UUID, at time.Time) error {
	if !i.IsAvailable() {
		return fmt.Errorf("%w: item %s is %s", shared.ErrItemUnavailable, i.ID, i.Status)
	}

	buyer := buyerID
	soldAt := at
	i.Status = shared.ItemStatusSold
	i.BuyerID = &buyer
	i.SoldAt = &soldAt
	i.UpdatedAt = at
	i.Version++
	return nil
}

// Withdraw takes a sold item off the storefront after its order was refunded. The buyer
// reference is kept for audit.
func (i *Item) Withdraw(at time.Time) {
	i.Status = shared.ItemStatusHidden
	i.UpdatedAt = at
	i.Version++
}
