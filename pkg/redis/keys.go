package redis

import "strings"

const defaultKeyPrefix = "cl"

// IdempotencyKey is where a stored API response for (scope, id) lives.
func (c *Client) IdempotencyKey(scope, id string) string {
	return c.key("idempotency", scope, id)
}

// TrackingLatestKey holds the most recent tracking event of an order.
func (c *Client) TrackingLatestKey(orderID string) string {
	return c.key("tracking", "latest", orderID)
}

// CronLockKey is the cron worker's leader lock for an environment.
func (c *Client) CronLockKey(env string) string {
	return c.key("cron-worker", "lock", env)
}

// key joins the non-blank parts under the client prefix.
func (c *Client) key(parts ...string) string {
	prefix := defaultKeyPrefix
	if c != nil && c.prefix != "" {
		prefix = c.prefix
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
