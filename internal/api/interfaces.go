package api

import (
	"context"

	"github.com/weatherlook/weatherlook/internal/session"
)

// Flow is the session surface the handlers drive.
type Flow interface {
	Snapshot() session.Snapshot
	Fetch(ctx context.Context) error
	Refresh(ctx context.Context) error
	SetSearchTerm(term string)
}

// cachePinger reports cache backend connectivity for the health check.
type cachePinger interface {
	Ping(ctx context.Context) error
}
