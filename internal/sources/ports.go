package sources

import (
	"context"
	"errors"

	"salesdash/internal/core"
)

// Ports for inbound dataset adapters.
type (
	// OrderSource returns the raw order table from a backing store.
	OrderSource interface {
		LoadOrders(ctx context.Context) (core.Table, error)
	}
)

var (
	ErrSourceUnavailable = errors.New("order source unavailable")
	ErrMissingColumn     = errors.New("required column missing")
	ErrBadTimestamp      = errors.New("unparsable purchase timestamp")
)
