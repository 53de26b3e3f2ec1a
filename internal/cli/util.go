package cli

import (
	"context"
	"time"
)

// generationContext bounds a one-shot generation. A non-positive timeout
// means no deadline.
func generationContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
