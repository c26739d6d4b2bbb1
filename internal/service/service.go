// Package service holds the engagement business logic between HTTP handlers
// and repositories.
package service

import (
	"context"
	"errors"
	"log/slog"

	"inkpost/internal/middleware"
	"inkpost/internal/models"
	"inkpost/internal/notifications"
)

// EventPublisher delivers engagement events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event notifications.Event) error
}

// isRejection reports whether err is a typed business outcome rather than
// an infrastructure failure.
func isRejection(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code != models.CodeInternal
}

// publish is best effort: a failed publish is logged and never fails the
// operation that produced the event.
func publish(ctx context.Context, events EventPublisher, event notifications.Event) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish engagement event",
			slog.String("type", event.Type),
			slog.Uint64("post_id", uint64(event.PostID)),
			slog.String("error", err.Error()),
		)
	}
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
