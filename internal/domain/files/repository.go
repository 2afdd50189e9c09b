package files

import (
	"context"

	"gorm.io/gorm"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Journal persists upload and deletion events.
type Journal interface {
	Record(ctx context.Context, e *Event) error
	Recent(ctx context.Context, limit int) ([]*Event, error)
}

// Notifier receives every event after the storage operation succeeded.
type Notifier interface {
	Publish(e *Event)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed Journal. Call Migrate once before use.
func NewRepository(db *gorm.DB) Journal {
	return &repository{db: db}
}

// Migrate creates the file_events table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Event{})
}

func (r *repository) Record(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *repository) Recent(ctx context.Context, limit int) ([]*Event, error) {
	events := []*Event{}
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&events).Error
	return events, err
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, *Event) error { return nil }

func (nopJournal) Recent(context.Context, int) ([]*Event, error) { return []*Event{}, nil }

type nopNotifier struct{}

func (nopNotifier) Publish(*Event) {}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultEventLimit
	}
	if limit > maxEventLimit {
		return maxEventLimit
	}
	return limit
}
