// Package repository provides data access for alert rules, change
// history, and the channel/compset lookup tables.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rateintel/rateintel-go/internal/datastore/entities"
)

// ErrAlertNotFound is returned when an alert id does not match a live
// (non-deleted) rule.
var ErrAlertNotFound = errors.New("alert not found")

// AlertRepository handles alert rule CRUD, change history, and lookups.
type AlertRepository interface {
	// Rule CRUD. Every mutation also writes an AlertChange snapshot.
	ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.AlertDefinition, error)
	GetAlert(ctx context.Context, alertID string) (*entities.AlertDefinition, error)
	CreateAlert(ctx context.Context, alert *entities.AlertDefinition) error
	UpdateAlert(ctx context.Context, alert *entities.AlertDefinition) error
	SetActive(ctx context.Context, alertID string, active bool, changedBy string) error
	SoftDeleteAlert(ctx context.Context, alertID string, changedBy string) error

	// Change history
	ListChanges(ctx context.Context, filter ChangeFilter) ([]entities.AlertChange, error)
	DeleteChangesBefore(ctx context.Context, before time.Time) (int64, error)

	// Lookup tables
	ListChannels(ctx context.Context, sid uint, otaOnly bool) ([]entities.Channel, error)
	ListProperties(ctx context.Context, sid uint, includeSubscriber bool) ([]entities.Property, error)
}

// AlertFilter controls rule listing queries. Soft-deleted rules are
// always excluded.
type AlertFilter struct {
	SID       uint
	AlertType string
	Active    *bool
}

// ChangeFilter controls history listing queries.
type ChangeFilter struct {
	SID     uint
	AlertID string
	Limit   int
	Offset  int
}
