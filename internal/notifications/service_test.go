package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/courierline-backend/internal/lifecycle"
	"github.com/angelmondragon/courierline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/courierline-backend/pkg/db/models"
	"github.com/angelmondragon/courierline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/courierline-backend/pkg/errors"
	"github.com/angelmondragon/courierline-backend/pkg/pagination"
)

func seedNotification(t *testing.T, repo Repository, recipient uuid.UUID, createdAt time.Time) *models.Notification {
	t.Helper()
	n := &models.Notification{
		EventID:       uuid.New(),
		OrderID:       uuid.New(),
		RecipientRole: enums.ActorRoleCustomer,
		RecipientID:   recipient,
		Template:      enums.NotificationOrderCancelled,
		Title:         "Order cancelled",
		Message:       "Order CL-1 was cancelled.",
		Data:          map[string]string{"order_number": "CL-1"},
		CreatedAt:     createdAt,
	}
	created, err := repo.Create(context.Background(), n)
	require.NoError(t, err)
	require.True(t, created)
	return n
}

func TestRepositoryCreateIgnoresDuplicateEvent(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	first := seedNotification(t, repo, uuid.New(), time.Now())

	dup := *first
	dup.ID = uuid.Nil
	created, err := repo.Create(context.Background(), &dup)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestServiceListPagesNewestFirst(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)

	recipient := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	older := seedNotification(t, repo, recipient, base)
	middle := seedNotification(t, repo, recipient, base.Add(time.Minute))
	newest := seedNotification(t, repo, recipient, base.Add(2*time.Minute))
	seedNotification(t, repo, uuid.New(), base.Add(3*time.Minute))

	actor := lifecycle.Actor{UserID: recipient, Role: enums.ActorRoleCustomer}
	page, err := svc.List(context.Background(), actor, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, newest.ID, page.Items[0].ID)
	assert.Equal(t, middle.ID, page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.List(context.Background(), actor, ListParams{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, older.ID, next.Items[0].ID)
	assert.Empty(t, next.NextCursor)
}

func TestServiceMarkRead(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)

	recipient := uuid.New()
	n := seedNotification(t, repo, recipient, time.Now())
	actor := lifecycle.Actor{UserID: recipient, Role: enums.ActorRoleCustomer}

	require.NoError(t, svc.MarkRead(context.Background(), actor, n.ID))
	// already read is not an error
	require.NoError(t, svc.MarkRead(context.Background(), actor, n.ID))

	unread, err := svc.List(context.Background(), actor, ListParams{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)

	stranger := lifecycle.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	err = svc.MarkRead(context.Background(), stranger, n.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestServiceMarkAllRead(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)

	recipient := uuid.New()
	seedNotification(t, repo, recipient, time.Now())
	seedNotification(t, repo, recipient, time.Now())

	count, err := svc.MarkAllRead(context.Background(), lifecycle.Actor{UserID: recipient, Role: enums.ActorRoleRider})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestServiceRequiresUser(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), lifecycle.Actor{}, ListParams{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	_, err = svc.List(context.Background(), lifecycle.Actor{UserID: uuid.New()}, ListParams{Cursor: "%%%"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRepositoryDeleteExpired(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	recipient := uuid.New()

	readLongAgo := seedNotification(t, repo, recipient, now.Add(-40*24*time.Hour))
	readRecently := seedNotification(t, repo, recipient, now.Add(-40*24*time.Hour))
	unreadOld := seedNotification(t, repo, recipient, now.Add(-40*24*time.Hour))
	ancient := seedNotification(t, repo, recipient, now.Add(-200*24*time.Hour))

	_, err := repo.MarkRead(ctx, recipient, readLongAgo.ID, now.Add(-35*24*time.Hour))
	require.NoError(t, err)
	_, err = repo.MarkRead(ctx, recipient, readRecently.ID, now.Add(-time.Hour))
	require.NoError(t, err)

	deleted, err := repo.DeleteExpired(ctx, now.Add(-30*24*time.Hour), now.Add(-180*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.List(ctx, listFilter{RecipientID: recipient}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(remaining))
	for _, n := range remaining {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{readRecently.ID, unreadOld.ID}, ids)
	assert.NotContains(t, ids, ancient.ID)
}
