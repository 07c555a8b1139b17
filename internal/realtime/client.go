package realtime

import (
	"github.com/google/uuid"

	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
)

// SSEClient is one open notification stream. A student may hold several,
// one per device.
type SSEClient struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	Channels  map[string]bool
	Outbound  chan SSEMessage
	done      chan struct{}
	closed    bool
	Logger    *logger.Logger
}
