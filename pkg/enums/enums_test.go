package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotificationTemplate(t *testing.T) {
	got, err := ParseNotificationTemplate("refund_completed")
	require.NoError(t, err)
	assert.Equal(t, NotificationRefundCompleted, got)
	assert.True(t, got.IsValid())

	_, err = ParseNotificationTemplate("promo_blast")
	assert.Error(t, err)
	assert.False(t, NotificationTemplate("promo_blast").IsValid())
}

func TestParseOrderStatusRoundTripsEveryStatus(t *testing.T) {
	for _, status := range OrderStatuses() {
		got, err := ParseOrderStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, got)
	}
	_, err := ParseOrderStatus("lost")
	assert.Error(t, err)
}
