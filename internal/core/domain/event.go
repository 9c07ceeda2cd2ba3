package domain

import "time"

type EventType string

const (
	EventItemListed        EventType = "item_listed"
	EventItemCanceled      EventType = "item_canceled"
	EventItemBought        EventType = "item_bought"
	EventProceedsWithdrawn EventType = "proceeds_withdrawn"
)

// Event is the notification emitted after a ledger operation commits.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Collection Address   `json:"collection,omitempty"`
	AssetID    uint64    `json:"asset_id,omitempty"`
	Seller     Address   `json:"seller,omitempty"`
	Buyer      Address   `json:"buyer,omitempty"`
	Price      uint64    `json:"price,omitempty"`
	Amount     uint64    `json:"amount,omitempty"` // withdrawn value
	OccurredAt time.Time `json:"occurred_at"`
}
