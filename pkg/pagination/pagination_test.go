package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 5, 1, 10, 30, 0, 123, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	_, err := ParseCursor("not base64!")
	assert.Error(t, err)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+5))
	assert.Equal(t, 7, NormalizeLimit(7))
}

type row struct {
	id uuid.UUID
	at time.Time
}

func TestBuildPage(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{
		{uuid.New(), base.Add(3 * time.Minute)},
		{uuid.New(), base.Add(2 * time.Minute)},
		{uuid.New(), base.Add(time.Minute)},
	}
	cursorOf := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page := BuildPage(rows, 2, cursorOf)
	assert.Len(t, page.Items, 2)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, next.ID)

	last := BuildPage(rows[2:], 2, cursorOf)
	assert.Len(t, last.Items, 1)
	assert.Empty(t, last.NextCursor)

	none := BuildPage[row](nil, 2, cursorOf)
	assert.NotNil(t, none.Items)
}

func TestCursorIsURLSafe(t *testing.T) {
	for i := 0; i < 50; i++ {
		token := EncodeCursor(Cursor{CreatedAt: time.Now().Add(time.Duration(i) * time.Hour), ID: uuid.New()})
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")
	}
}

func TestParseCursorRequiresPosition(t *testing.T) {
	_, err := ParseCursor(EncodeCursor(Cursor{}))
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = ParseCursor("e30")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
