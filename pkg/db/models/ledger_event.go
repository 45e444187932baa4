package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

// LedgerEvent is an immutable wallet movement. AmountCents is signed: credits
// are positive, debits negative. PartyID is nil for the platform wallet.
type LedgerEvent struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	RefundRequestID *uuid.UUID            `gorm:"column:refund_request_id;type:uuid"`
	Party           enums.WalletParty     `gorm:"column:party;type:text;not null"`
	PartyID         *uuid.UUID            `gorm:"column:party_id;type:uuid"`
	Type            enums.LedgerEventType `gorm:"column:type;type:ledger_event_type;not null"`
	AmountCents     int64                 `gorm:"column:amount_cents;not null"`
	ActorUserID     *uuid.UUID            `gorm:"column:actor_user_id;type:uuid"`
	Metadata        json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}
