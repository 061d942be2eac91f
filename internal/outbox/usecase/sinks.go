package usecase

import (
	"context"
	"log/slog"
)

// NotificationSink delivers customer-facing notifications (order confirmation,
// refund emails). Delivery is at-least-once: a duplicate email is tolerated by
// this design, not prevented.
type NotificationSink interface {
	Notify(ctx context.Context, eventType string, payload map[string]any) error
}

// CacheInvalidator drops read-side cache entries for the given keys. Invalidating
// the same key twice is harmless.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys []string) error
}

// SearchIndexer schedules a reindex of one entity. Reindexing twice is harmless.
type SearchIndexer interface {
	Reindex(ctx context.Context, entity string, id string) error
}

// LogNotificationSink is a stand-in notification sink that only logs.
type LogNotificationSink struct {
	logger *slog.Logger
}

// NewLogNotificationSink creates a log-backed notification sink.
func NewLogNotificationSink(logger *slog.Logger) *LogNotificationSink {
	return &LogNotificationSink{logger: logger}
}

// Notify logs the notification instead of sending it.
func (s *LogNotificationSink) Notify(ctx context.Context, eventType string, payload map[string]any) error {
	if s.logger != nil {
		s.logger.Info("notification dispatched",
			slog.String("event_type", eventType),
			slog.Any("payload", payload),
		)
	}
	return nil
}

// LogCacheInvalidator is a stand-in cache invalidator that only logs.
type LogCacheInvalidator struct {
	logger *slog.Logger
}

// NewLogCacheInvalidator creates a log-backed cache invalidator.
func NewLogCacheInvalidator(logger *slog.Logger) *LogCacheInvalidator {
	return &LogCacheInvalidator{logger: logger}
}

// Invalidate logs the cache keys instead of touching a cache.
func (s *LogCacheInvalidator) Invalidate(ctx context.Context, keys []string) error {
	if s.logger != nil {
		s.logger.Info("cache invalidated", slog.Any("keys", keys))
	}
	return nil
}

// LogSearchIndexer is a stand-in search indexer that only logs.
type LogSearchIndexer struct {
	logger *slog.Logger
}

// NewLogSearchIndexer creates a log-backed search indexer.
func NewLogSearchIndexer(logger *slog.Logger) *LogSearchIndexer {
	return &LogSearchIndexer{logger: logger}
}

// Reindex logs the reindex request instead of indexing.
func (s *LogSearchIndexer) Reindex(ctx context.Context, entity string, id string) error {
	if s.logger != nil {
		s.logger.Info("search reindex scheduled",
			slog.String("entity", entity),
			slog.String("id", id),
		)
	}
	return nil
}
