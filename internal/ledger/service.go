package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	"github.com/angelmondragon/courierline-backend/pkg/types"
)

// Service defines operations that record ledger events.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	PostRefund(ctx context.Context, tx *gorm.DB, posting RefundPosting) ([]models.LedgerEvent, error)
	WalletBalance(ctx context.Context, party enums.WalletParty, partyID *uuid.UUID) (int64, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
// AmountCents is a magnitude; the sign is derived from Type.
type RecordLedgerEventInput struct {
	OrderID         uuid.UUID             `json:"order_id"`
	RefundRequestID *uuid.UUID            `json:"refund_request_id,omitempty"`
	Party           enums.WalletParty     `json:"party"`
	PartyID         *uuid.UUID            `json:"party_id,omitempty"`
	ActorUserID     *uuid.UUID            `json:"actor_user_id,omitempty"`
	Type            enums.LedgerEventType `json:"type"`
	AmountCents     int64                 `json:"amount_cents"`
	Metadata        json.RawMessage       `json:"metadata"`
}

// RefundPosting is the set of wallet movements for one settled refund.
type RefundPosting struct {
	RefundRequestID uuid.UUID
	OrderID         uuid.UUID
	CustomerID      uuid.UUID
	StoreID         uuid.UUID
	RiderID         *uuid.UUID
	AmountCents     int64
	Distribution    types.CostDistribution
	ActorUserID     *uuid.UUID
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !input.Party.IsValid() {
		return nil, fmt.Errorf("invalid wallet party %q", input.Party)
	}
	if input.Party != enums.WalletPartyPlatform && (input.PartyID == nil || *input.PartyID == uuid.Nil) {
		return nil, fmt.Errorf("party id is required for %s wallets", input.Party)
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	amount := input.AmountCents
	if !input.Type.IsCredit() {
		amount = -amount
	}
	partyID := input.PartyID
	if input.Party == enums.WalletPartyPlatform {
		partyID = nil
	}
	event := &models.LedgerEvent{
		ID:              uuid.New(),
		OrderID:         input.OrderID,
		RefundRequestID: input.RefundRequestID,
		Party:           input.Party,
		PartyID:         partyID,
		Type:            input.Type,
		AmountCents:     amount,
		ActorUserID:     input.ActorUserID,
		Metadata:        input.Metadata,
	}

	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// PostRefund credits the customer and debits each funding party. Entries that
// already exist for the refund are skipped, so a retried settlement never
// double-credits.
func (s *service) PostRefund(ctx context.Context, tx *gorm.DB, posting RefundPosting) ([]models.LedgerEvent, error) {
	if posting.RefundRequestID == uuid.Nil {
		return nil, fmt.Errorf("refund request id is required")
	}
	if posting.AmountCents <= 0 {
		return nil, fmt.Errorf("refund amount must be positive")
	}
	if posting.Distribution.SumCents() != posting.AmountCents {
		return nil, fmt.Errorf("distribution sums to %d, refund is %d", posting.Distribution.SumCents(), posting.AmountCents)
	}
	if posting.Distribution.FromDriverCents > 0 && posting.RiderID == nil {
		return nil, fmt.Errorf("driver debit without a rider")
	}

	refundID := posting.RefundRequestID
	customerID := posting.CustomerID
	storeID := posting.StoreID
	entries := []RecordLedgerEventInput{
		{Party: enums.WalletPartyCustomer, PartyID: &customerID, Type: enums.LedgerEventRefundCredit, AmountCents: posting.AmountCents},
		{Party: enums.WalletPartyStore, PartyID: &storeID, Type: enums.LedgerEventStoreDebit, AmountCents: posting.Distribution.FromStoreCents},
		{Party: enums.WalletPartyRider, PartyID: posting.RiderID, Type: enums.LedgerEventDriverDebit, AmountCents: posting.Distribution.FromDriverCents},
		{Party: enums.WalletPartyPlatform, Type: enums.LedgerEventPlatformDebit, AmountCents: posting.Distribution.FromPlatformCents},
	}

	repo := s.repo.WithTx(tx)
	var written []models.LedgerEvent
	for _, entry := range entries {
		if entry.AmountCents == 0 {
			continue
		}
		exists, err := repo.HasRefundEntry(ctx, refundID, entry.Type, entry.Party)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		entry.OrderID = posting.OrderID
		entry.RefundRequestID = &refundID
		entry.ActorUserID = posting.ActorUserID
		event, err := s.RecordEvent(ctx, tx, entry)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", entry.Type, err)
		}
		written = append(written, *event)
	}
	return written, nil
}

func (s *service) WalletBalance(ctx context.Context, party enums.WalletParty, partyID *uuid.UUID) (int64, error) {
	if !party.IsValid() {
		return 0, fmt.Errorf("invalid wallet party %q", party)
	}
	if party == enums.WalletPartyPlatform {
		partyID = nil
	}
	return s.repo.Balance(ctx, party, partyID)
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}
