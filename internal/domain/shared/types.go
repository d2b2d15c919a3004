package shared

// ItemStatus defines the lifecycle of a game-account listing
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "AVAILABLE"
	ItemStatusReserved  ItemStatus = "RESERVED"
	ItemStatusSold      ItemStatus = "SOLD"
	ItemStatusHidden    ItemStatus = "HIDDEN"
)

// EntryType defines the balance-affecting event recorded by a ledger entry
type EntryType string

const (
	EntryTypePurchase   EntryType = "PURCHASE"
	EntryTypeTopUp      EntryType = "TOPUP"
	EntryTypeRefund     EntryType = "REFUND"
	EntryTypeAdjustment EntryType = "ADJUSTMENT"
)

// EntryStatus defines ledger entry states. Only PENDING may transition.
type EntryStatus string

const (
	EntryStatusPending EntryStatus = "PENDING"
	EntryStatusSuccess EntryStatus = "SUCCESS"
	EntryStatusFailed  EntryStatus = "FAILED"
)

// OrderStatus defines order processing states
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// PaymentMethod defines how an order was paid
type PaymentMethod string

const (
	PaymentMethodBalance PaymentMethod = "BALANCE"
)

// TopUpStatus defines top-up transaction states
type TopUpStatus string

const (
	TopUpStatusPending TopUpStatus = "PENDING"
	TopUpStatusSuccess TopUpStatus = "SUCCESS"
	TopUpStatusFailed  TopUpStatus = "FAILED"
	TopUpStatusExpired TopUpStatus = "EXPIRED"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
