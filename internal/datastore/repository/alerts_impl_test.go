package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/rateintel/rateintel-go/internal/datastore/entities"
)

// setupTestDB creates an isolated in-memory database for one test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=ON", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entities.AlertDefinition{},
		&entities.AlertChange{},
		&entities.Property{},
		&entities.Channel{},
	))
	return db
}

func testAlert(sid uint) *entities.AlertDefinition {
	return &entities.AlertDefinition{
		AlertID:        uuid.NewString(),
		SID:            sid,
		AlertType:      "ADR",
		AlertOn:        "Subscriber",
		AlertRule:      "Increased",
		ThresholdValue: 10,
		WithRespectTo:  "Subscriber",
		CompsetList:    "1",
		WRTCompsetList: "1",
		CreatedBy:      "tester",
		IsActive:       true,
	}
}

func TestCreateAndGetAlert(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	alert := testAlert(42)
	require.NoError(t, repo.CreateAlert(ctx, alert))

	got, err := repo.GetAlert(ctx, alert.AlertID)
	require.NoError(t, err)
	assert.Equal(t, alert.AlertID, got.AlertID)
	assert.Equal(t, "ADR", got.AlertType)
	assert.False(t, got.CreatedOn.IsZero())

	// Creation leaves a history snapshot behind.
	changes, err := repo.ListChanges(ctx, ChangeFilter{AlertID: alert.AlertID})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, entities.ActionCreate, changes[0].Action)
}

func TestGetAlert_NotFound(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))

	_, err := repo.GetAlert(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestListAlerts_Filters(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	adr := testAlert(42)
	require.NoError(t, repo.CreateAlert(ctx, adr))

	parity := testAlert(42)
	parity.AlertType = "Parity"
	parity.IsActive = false
	require.NoError(t, repo.CreateAlert(ctx, parity))

	other := testAlert(99)
	require.NoError(t, repo.CreateAlert(ctx, other))

	all, err := repo.ListAlerts(ctx, AlertFilter{SID: 42})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	adrs, err := repo.ListAlerts(ctx, AlertFilter{SID: 42, AlertType: "ADR"})
	require.NoError(t, err)
	require.Len(t, adrs, 1)
	assert.Equal(t, adr.AlertID, adrs[0].AlertID)

	active := true
	actives, err := repo.ListAlerts(ctx, AlertFilter{SID: 42, Active: &active})
	require.NoError(t, err)
	require.Len(t, actives, 1)
	assert.Equal(t, adr.AlertID, actives[0].AlertID)
}

func TestListAlerts_StableOrder(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	first := testAlert(42)
	second := testAlert(42)
	require.NoError(t, repo.CreateAlert(ctx, first))
	require.NoError(t, repo.CreateAlert(ctx, second))

	alerts, err := repo.ListAlerts(ctx, AlertFilter{SID: 42})
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, first.AlertID, alerts[0].AlertID, "oldest rule lists first")
	assert.Equal(t, second.AlertID, alerts[1].AlertID)
}

func TestUpdateAlert(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	alert := testAlert(42)
	require.NoError(t, repo.CreateAlert(ctx, alert))
	created := alert.CreatedOn

	updated := *alert
	updated.ID = 0
	updated.ThresholdValue = 25
	updated.CreatedOn = time.Time{}
	require.NoError(t, repo.UpdateAlert(ctx, &updated))

	got, err := repo.GetAlert(ctx, alert.AlertID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.ThresholdValue)
	assert.WithinDuration(t, created, got.CreatedOn, time.Second,
		"updates never rewrite the creation time")

	changes, err := repo.ListChanges(ctx, ChangeFilter{AlertID: alert.AlertID})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, entities.ActionModified, changes[0].Action)
}

func TestUpdateAlert_MissingID(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))

	err := repo.UpdateAlert(context.Background(), &entities.AlertDefinition{})
	assert.Error(t, err)
}

func TestSetActive(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	alert := testAlert(42)
	require.NoError(t, repo.CreateAlert(ctx, alert))

	require.NoError(t, repo.SetActive(ctx, alert.AlertID, false, "toggler"))

	got, err := repo.GetAlert(ctx, alert.AlertID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	changes, err := repo.ListChanges(ctx, ChangeFilter{AlertID: alert.AlertID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, entities.ActionModified, changes[0].Action)
	assert.Equal(t, "toggler", changes[0].CreatedBy)
}

func TestSoftDeleteAlert(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	alert := testAlert(42)
	require.NoError(t, repo.CreateAlert(ctx, alert))
	require.NoError(t, repo.SoftDeleteAlert(ctx, alert.AlertID, "remover"))

	// Gone from list and lookup...
	alerts, err := repo.ListAlerts(ctx, AlertFilter{SID: 42})
	require.NoError(t, err)
	assert.Empty(t, alerts)

	_, err = repo.GetAlert(ctx, alert.AlertID)
	assert.ErrorIs(t, err, ErrAlertNotFound)

	// ...but the row and its history survive.
	var raw entities.AlertDefinition
	db := setupTestDBHandle(t, repo)
	require.NoError(t, db.Unscoped().Where("alert_id = ?", alert.AlertID).First(&raw).Error)
	assert.True(t, raw.Deleted)

	changes, err := repo.ListChanges(ctx, ChangeFilter{AlertID: alert.AlertID})
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, entities.ActionDeleted, changes[0].Action)

	// Double delete reports not found.
	err = repo.SoftDeleteAlert(ctx, alert.AlertID, "remover")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func setupTestDBHandle(t *testing.T, repo AlertRepository) *gorm.DB {
	t.Helper()
	impl, ok := repo.(*alertRepository)
	require.True(t, ok)
	return impl.db
}

func TestDeleteChangesBefore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	alert := testAlert(42)
	require.NoError(t, repo.CreateAlert(ctx, alert))

	old := entities.SnapshotOf(alert, entities.ActionModified)
	old.ChangedOn = time.Now().AddDate(0, 0, -120)
	require.NoError(t, db.Create(old).Error)

	pruned, err := repo.DeleteChangesBefore(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	remaining, err := repo.ListChanges(ctx, ChangeFilter{AlertID: alert.AlertID})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestListChanges_Pagination(t *testing.T) {
	repo := NewAlertRepository(setupTestDB(t))
	ctx := context.Background()

	alert := testAlert(42)
	require.NoError(t, repo.CreateAlert(ctx, alert))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SetActive(ctx, alert.AlertID, i%2 == 0, "tester"))
	}

	page, err := repo.ListChanges(ctx, ChangeFilter{SID: 42, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := repo.ListChanges(ctx, ChangeFilter{SID: 42, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestLookupTables(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&entities.Property{PropertyID: 1, SID: 42, HMID: 101, Name: "Harbor View Inn", IsSubscriber: true}).Error)
	require.NoError(t, db.Create(&entities.Property{PropertyID: 5, SID: 42, HMID: 105, Name: "Grand Hotel"}).Error)
	require.NoError(t, db.Create(&entities.Property{PropertyID: 9, SID: 99, Name: "Elsewhere"}).Error)
	require.NoError(t, db.Create(&entities.Channel{CID: 10, SID: 42, Name: "Booking.com", OTA: true}).Error)
	require.NoError(t, db.Create(&entities.Channel{CID: 11, SID: 42, Name: "Brand.com"}).Error)
	require.NoError(t, db.Create(&entities.Channel{CID: 20, SID: 99, Name: "Agoda", OTA: true}).Error)

	competitors, err := repo.ListProperties(ctx, 42, false)
	require.NoError(t, err)
	require.Len(t, competitors, 1)
	assert.Equal(t, "Grand Hotel", competitors[0].Name)

	all, err := repo.ListProperties(ctx, 42, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Channels are scoped to the subscriber like properties; another
	// subscriber's channels never leak in.
	channels, err := repo.ListChannels(ctx, 42, false)
	require.NoError(t, err)
	assert.Len(t, channels, 2)

	ota, err := repo.ListChannels(ctx, 42, true)
	require.NoError(t, err)
	require.Len(t, ota, 1)
	assert.Equal(t, "Booking.com", ota[0].Name)

	other, err := repo.ListChannels(ctx, 99, false)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "Agoda", other[0].Name)
}
