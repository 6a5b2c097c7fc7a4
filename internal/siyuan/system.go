package siyuan

import (
	"context"
	"time"
)

// DefaultNotifyTimeout is how long a pushed message stays on screen when the
// caller passes zero.
const DefaultNotifyTimeout = 7000 * time.Millisecond

// SQL runs stmt against the kernel's database and returns the rows.
func (c *Client) SQL(ctx context.Context, stmt string) ([]map[string]any, error) {
	return call[[]map[string]any](ctx, c, "/api/query/sql", Payload{"stmt": stmt})
}

// RenderSprig renders a template with the kernel's sprig functions.
func (c *Client) RenderSprig(ctx context.Context, template string) (string, error) {
	return call[string](ctx, c, "/api/template/renderSprig", Payload{"template": template})
}

// PushMsg shows an informational toast.
func (c *Client) PushMsg(ctx context.Context, msg string, timeout time.Duration) (Message, error) {
	return call[Message](ctx, c, "/api/notification/pushMsg", notifyPayload(msg, timeout))
}

// PushErrMsg shows an error toast.
func (c *Client) PushErrMsg(ctx context.Context, msg string, timeout time.Duration) (Message, error) {
	return call[Message](ctx, c, "/api/notification/pushErrMsg", notifyPayload(msg, timeout))
}

func notifyPayload(msg string, timeout time.Duration) Payload {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return Payload{"msg": msg, "timeout": timeout.Milliseconds()}
}

// Version returns the kernel version.
func (c *Client) Version(ctx context.Context) (string, error) {
	return call[string](ctx, c, "/api/system/version", nil)
}

// CurrentTime returns the kernel clock in milliseconds since the epoch.
func (c *Client) CurrentTime(ctx context.Context) (int64, error) {
	return call[int64](ctx, c, "/api/system/currentTime", nil)
}

// Ping checks that the kernel is reachable and accepts the token.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Version(ctx)
	return err
}
