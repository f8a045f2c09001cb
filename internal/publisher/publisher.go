package publisher

import "context"

// Publisher persists a report somewhere a human can chart it.
type Publisher interface {
	Publish(ctx context.Context, r *Report) error
	Name() string
}
