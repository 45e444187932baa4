package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/pkg/enums"
)

// EnvelopeVersion is the newest envelope layout this build writes and reads.
const EnvelopeVersion = 1

// ErrInvalidEnvelope marks payloads no consumer can act on. Redelivery does not
// help, so callers drop or dead-letter them.
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// ActorRef records who caused the event. System work carries no user.
type ActorRef struct {
	UserID  uuid.UUID       `json:"userId"`
	StoreID *uuid.UUID      `json:"storeId,omitempty"`
	Role    enums.ActorRole `json:"role,omitempty"`
}

// NewActorRef returns nil for an anonymous actor so the envelope omits it.
func NewActorRef(userID uuid.UUID, storeID *uuid.UUID, role enums.ActorRole) *ActorRef {
	if userID == uuid.Nil && role == "" {
		return nil
	}
	return &ActorRef{UserID: userID, StoreID: storeID, Role: role}
}

// PayloadEnvelope wraps every outbox payload. It is stored in outbox_events and
// published as the Pub/Sub message body without changes.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses raw into an envelope and checks the fields consumers
// depend on. Failures wrap ErrInvalidEnvelope.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if envelope.Version < 1 || envelope.Version > EnvelopeVersion {
		return PayloadEnvelope{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidEnvelope, envelope.Version)
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("%w: event id %q", ErrInvalidEnvelope, envelope.EventID)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, fmt.Errorf("%w: data missing", ErrInvalidEnvelope)
	}
	return envelope, nil
}

// ID returns the parsed event id, or uuid.Nil when EventID is not a uuid.
func (e PayloadEnvelope) ID() uuid.UUID {
	id, err := uuid.Parse(e.EventID)
	if err != nil {
		return uuid.Nil
	}
	return id
}
