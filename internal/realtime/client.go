package realtime

import (
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

// SSEClient is one open event stream for a user watching their own channel
// and any number of session channels. Outbound is closed by CloseClient.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}

// SessionIDs lists the sessions this client is subscribed to.
func (c *SSEClient) SessionIDs() []uuid.UUID {
	var out []uuid.UUID
	for ch := range c.Channels {
		if id, ok := ParseSessionChannel(ch); ok {
			out = append(out, id)
		}
	}
	return out
}

// ParseSessionChannel reverses SessionChannel.
func ParseSessionChannel(channel string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(channel, "session:")
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
