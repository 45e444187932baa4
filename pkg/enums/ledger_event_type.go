package enums

import "fmt"

// LedgerEventType maps to the ledger_event_type enum in Postgres.
type LedgerEventType string

const (
	LedgerEventRefundCredit  LedgerEventType = "refund_credit"
	LedgerEventStoreDebit    LedgerEventType = "store_debit"
	LedgerEventDriverDebit   LedgerEventType = "driver_debit"
	LedgerEventPlatformDebit LedgerEventType = "platform_debit"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventRefundCredit,
	LedgerEventStoreDebit,
	LedgerEventDriverDebit,
	LedgerEventPlatformDebit,
}

// IsValid reports whether the value matches the canonical ledger event enum.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsCredit reports whether the event increases the party's wallet balance.
func (t LedgerEventType) IsCredit() bool {
	return t == LedgerEventRefundCredit
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}

// WalletParty identifies whose wallet a ledger event moves.
type WalletParty string

const (
	WalletPartyCustomer WalletParty = "customer"
	WalletPartyStore    WalletParty = "store"
	WalletPartyRider    WalletParty = "rider"
	WalletPartyPlatform WalletParty = "platform"
)

func (p WalletParty) IsValid() bool {
	switch p {
	case WalletPartyCustomer, WalletPartyStore, WalletPartyRider, WalletPartyPlatform:
		return true
	}
	return false
}

func ParseWalletParty(value string) (WalletParty, error) {
	p := WalletParty(value)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid wallet party %q", value)
	}
	return p, nil
}
