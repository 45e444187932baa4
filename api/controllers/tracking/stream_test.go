package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/courierline-backend/api/middleware"
	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	internalorders "github.com/angelmondragon/courierline-backend/internal/orders"
	internaltracking "github.com/angelmondragon/courierline-backend/internal/tracking"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/logger"
)

type stubSubscriber struct {
	events   []internaltracking.Event
	channels []string
}

func (s *stubSubscriber) Subscribe(ctx context.Context, channels ...string) (<-chan internaltracking.Event, error) {
	s.channels = channels
	out := make(chan internaltracking.Event, len(s.events))
	for _, ev := range s.events {
		out <- ev
	}
	close(out)
	return out, nil
}

type stubLatest struct {
	event *internaltracking.Event
}

func (s stubLatest) Latest(ctx context.Context, orderID uuid.UUID) (*internaltracking.Event, error) {
	return s.event, nil
}

type stubOrders struct {
	err error
}

func (s stubOrders) Get(ctx context.Context, actor lifecycle.Actor, orderID uuid.UUID) (*internalorders.OrderView, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderView{ID: orderID}, nil
}

func streamRequest(target string, actor lifecycle.Actor) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func TestStreamReplaysLatestThenLiveEvents(t *testing.T) {
	orderID := uuid.New()
	latest := internaltracking.Event{Name: internaltracking.EventStatusChanged, OrderID: orderID, OccurredAt: time.Now(), Data: json.RawMessage(`{"status":"preparing"}`)}
	live := internaltracking.Event{Name: internaltracking.EventLocationUpdate, OrderID: orderID, OccurredAt: time.Now(), Data: json.RawMessage(`{"location":{"lat":1,"lng":2}}`)}
	sub := &stubSubscriber{events: []internaltracking.Event{live}}

	handler := Stream(StreamParams{
		Subscriber: sub,
		Latest:     stubLatest{event: &latest},
		Orders:     stubOrders{},
		Logger:     logger.Nop(),
	})

	customer := lifecycle.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	resp := httptest.NewRecorder()
	handler(resp, streamRequest("/api/v1/tracking/stream?order_id="+orderID.String(), customer))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("expected event-stream content type")
	}
	if len(sub.channels) != 1 || sub.channels[0] != "order:"+orderID.String() {
		t.Fatalf("unexpected channels %v", sub.channels)
	}
	body := resp.Body.String()
	first := strings.Index(body, "event: order:status-changed")
	second := strings.Index(body, "event: driver:location-update")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("expected latest then live event, got %q", body)
	}
}

func TestStreamChecksOrderAccess(t *testing.T) {
	sub := &stubSubscriber{}
	handler := Stream(StreamParams{
		Subscriber: sub,
		Orders:     stubOrders{err: pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")},
		Logger:     logger.Nop(),
	})

	customer := lifecycle.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	resp := httptest.NewRecorder()
	handler(resp, streamRequest("/api/v1/tracking/stream?order_id="+uuid.NewString(), customer))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if sub.channels != nil {
		t.Fatalf("should not subscribe")
	}
}

func TestStreamFeedChannels(t *testing.T) {
	storeID := uuid.New()
	userID := uuid.New()
	cases := []struct {
		actor lifecycle.Actor
		want  string
	}{
		{lifecycle.Actor{UserID: userID, Role: enums.ActorRoleAdmin}, "admin"},
		{lifecycle.Actor{UserID: userID, Role: enums.ActorRoleStoreManager, StoreID: &storeID}, "store:" + storeID.String()},
		{lifecycle.Actor{UserID: userID, Role: enums.ActorRoleCustomer}, "customer:" + userID.String()},
		{lifecycle.Actor{UserID: userID, Role: enums.ActorRoleRider}, "rider:" + userID.String()},
	}
	for _, tc := range cases {
		got, err := feedChannel(tc.actor)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.actor.Role, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %s got %s", tc.actor.Role, tc.want, got)
		}
	}

	_, err := feedChannel(lifecycle.Actor{UserID: userID, Role: enums.ActorRoleStoreManager})
	var typed *pkgerrors.Error
	if !errors.As(err, &typed) || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for unscoped store manager, got %v", err)
	}
}
