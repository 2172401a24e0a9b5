package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rateintel/rateintel-go/internal/datastore/entities"
)

// alertRepository implements AlertRepository.
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// ListAlerts returns live alert rules matching the given filter, oldest
// first so display indexes stay stable between unchanged list calls.
func (r *alertRepository) ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.AlertDefinition, error) {
	var alerts []entities.AlertDefinition
	query := r.db.WithContext(ctx).Where("deleted = ?", false)

	if filter.SID > 0 {
		query = query.Where("sid = ?", filter.SID)
	}
	if filter.AlertType != "" {
		query = query.Where("alert_type = ?", filter.AlertType)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	if err := query.Order("id ASC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// GetAlert returns a single live alert rule by its stable AlertID.
// Returns ErrAlertNotFound if the rule does not exist or was deleted.
func (r *alertRepository) GetAlert(ctx context.Context, alertID string) (*entities.AlertDefinition, error) {
	var alert entities.AlertDefinition
	err := r.db.WithContext(ctx).
		Where("alert_id = ? AND deleted = ?", alertID, false).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert %s: %w", alertID, err)
	}
	return &alert, nil
}

// CreateAlert inserts a new rule and its Create history snapshot.
func (r *alertRepository) CreateAlert(ctx context.Context, alert *entities.AlertDefinition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(alert).Error; err != nil {
			return fmt.Errorf("failed to create alert: %w", err)
		}
		if err := tx.Create(entities.SnapshotOf(alert, entities.ActionCreate)).Error; err != nil {
			return fmt.Errorf("failed to record alert creation: %w", err)
		}
		return nil
	})
}

// UpdateAlert replaces a rule's fields and records a Modified snapshot.
func (r *alertRepository) UpdateAlert(ctx context.Context, alert *entities.AlertDefinition) error {
	if alert.AlertID == "" {
		return fmt.Errorf("failed to update alert: missing alert ID")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := getLiveForUpdate(tx, alert.AlertID)
		if err != nil {
			return err
		}
		alert.ID = existing.ID
		alert.CreatedOn = existing.CreatedOn
		if err := tx.Save(alert).Error; err != nil {
			return fmt.Errorf("failed to update alert: %w", err)
		}
		if err := tx.Create(entities.SnapshotOf(alert, entities.ActionModified)).Error; err != nil {
			return fmt.Errorf("failed to record alert update: %w", err)
		}
		return nil
	})
}

// SetActive toggles a rule's active flag and records a Modified snapshot
// attributed to changedBy.
func (r *alertRepository) SetActive(ctx context.Context, alertID string, active bool, changedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		alert, err := getLiveForUpdate(tx, alertID)
		if err != nil {
			return err
		}
		alert.IsActive = active
		if err := tx.Model(alert).Update("is_active", active).Error; err != nil {
			return fmt.Errorf("failed to toggle alert %s: %w", alertID, err)
		}
		snapshot := entities.SnapshotOf(alert, entities.ActionModified)
		snapshot.CreatedBy = changedBy
		if err := tx.Create(snapshot).Error; err != nil {
			return fmt.Errorf("failed to record alert toggle: %w", err)
		}
		return nil
	})
}

// SoftDeleteAlert removes a rule from the active list and records a
// Deleted snapshot. The row itself is retained for history.
func (r *alertRepository) SoftDeleteAlert(ctx context.Context, alertID string, changedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		alert, err := getLiveForUpdate(tx, alertID)
		if err != nil {
			return err
		}
		if err := tx.Model(alert).Update("deleted", true).Error; err != nil {
			return fmt.Errorf("failed to delete alert %s: %w", alertID, err)
		}
		snapshot := entities.SnapshotOf(alert, entities.ActionDeleted)
		snapshot.CreatedBy = changedBy
		if err := tx.Create(snapshot).Error; err != nil {
			return fmt.Errorf("failed to record alert deletion: %w", err)
		}
		return nil
	})
}

func getLiveForUpdate(tx *gorm.DB, alertID string) (*entities.AlertDefinition, error) {
	var alert entities.AlertDefinition
	err := tx.Where("alert_id = ? AND deleted = ?", alertID, false).First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to load alert %s: %w", alertID, err)
	}
	return &alert, nil
}

// ListChanges returns change-history entries, newest first.
func (r *alertRepository) ListChanges(ctx context.Context, filter ChangeFilter) ([]entities.AlertChange, error) {
	var changes []entities.AlertChange
	query := r.db.WithContext(ctx).Order("changed_on DESC, id DESC")

	if filter.SID > 0 {
		query = query.Where("sid = ?", filter.SID)
	}
	if filter.AlertID != "" {
		query = query.Where("alert_id = ?", filter.AlertID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("failed to list alert changes: %w", err)
	}
	return changes, nil
}

// DeleteChangesBefore prunes history entries older than the given time.
func (r *alertRepository) DeleteChangesBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("changed_on < ?", before).Delete(&entities.AlertChange{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete alert changes before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}

// ListChannels returns the subscriber's channel lookup table.
func (r *alertRepository) ListChannels(ctx context.Context, sid uint, otaOnly bool) ([]entities.Channel, error) {
	var channels []entities.Channel
	query := r.db.WithContext(ctx).Where("sid = ?", sid)
	if otaOnly {
		query = query.Where("ota = ?", true)
	}
	if err := query.Order("cid ASC").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// ListProperties returns the subscriber's compset lookup table,
// optionally including the subscriber's own property.
func (r *alertRepository) ListProperties(ctx context.Context, sid uint, includeSubscriber bool) ([]entities.Property, error) {
	var properties []entities.Property
	query := r.db.WithContext(ctx).Where("sid = ?", sid)
	if !includeSubscriber {
		query = query.Where("is_subscriber = ?", false)
	}
	if err := query.Order("property_id ASC").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}
