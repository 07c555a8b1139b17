package bus

import (
	"context"

	"github.com/i-am-the-robot/Edulife/internal/realtime"
)

// Bus fans notification messages out to every API instance. Each instance
// forwards what it receives into its own hub.
type Bus interface {
	realtime.Publisher
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
