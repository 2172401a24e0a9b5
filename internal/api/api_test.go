package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rateintel/rateintel-go/internal/conf"
	"github.com/rateintel/rateintel-go/internal/datastore/entities"
	"github.com/rateintel/rateintel-go/internal/datastore/repository"
	"github.com/rateintel/rateintel-go/internal/logger"
	"github.com/rateintel/rateintel-go/internal/notification"
)

// stubRepo is an in-memory AlertRepository with per-method failure
// switches.
type stubRepo struct {
	mu       sync.Mutex
	alerts   map[string]*entities.AlertDefinition
	changes  []entities.AlertChange
	channels []entities.Channel
	props    []entities.Property

	failChannels bool
	failProps    bool
	failAlerts   bool

	// updateStarted/updateRelease let a test hold a mutation open to
	// provoke the double-submit guard.
	updateStarted chan struct{}
	updateRelease chan struct{}

	channelQueries int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		alerts: map[string]*entities.AlertDefinition{},
		channels: []entities.Channel{
			{CID: 10, SID: 42, Name: "Booking.com", OTA: true},
			{CID: 11, SID: 42, Name: "Expedia", OTA: true},
			{CID: 12, SID: 42, Name: "Brand.com"},
		},
		props: []entities.Property{
			{PropertyID: 1, SID: 42, HMID: 101, Name: "Harbor View Inn", IsSubscriber: true},
			{PropertyID: 5, SID: 42, HMID: 105, Name: "Grand Hotel"},
		},
	}
}

func (r *stubRepo) ListAlerts(_ context.Context, filter repository.AlertFilter) ([]entities.AlertDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAlerts {
		return nil, errors.New("alerts table unavailable")
	}
	var out []entities.AlertDefinition
	for _, a := range r.alerts {
		if a.Deleted || (filter.SID > 0 && a.SID != filter.SID) {
			continue
		}
		if filter.AlertType != "" && a.AlertType != filter.AlertType {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r *stubRepo) GetAlert(_ context.Context, alertID string) (*entities.AlertDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[alertID]
	if !ok || a.Deleted {
		return nil, repository.ErrAlertNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *stubRepo) CreateAlert(_ context.Context, alert *entities.AlertDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert.CreatedOn = time.Now()
	copied := *alert
	r.alerts[alert.AlertID] = &copied
	r.changes = append(r.changes, *entities.SnapshotOf(alert, entities.ActionCreate))
	return nil
}

func (r *stubRepo) UpdateAlert(_ context.Context, alert *entities.AlertDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.alerts[alert.AlertID]
	if !ok || existing.Deleted {
		return repository.ErrAlertNotFound
	}
	copied := *alert
	r.alerts[alert.AlertID] = &copied
	r.changes = append(r.changes, *entities.SnapshotOf(alert, entities.ActionModified))
	return nil
}

func (r *stubRepo) SetActive(_ context.Context, alertID string, active bool, changedBy string) error {
	if r.updateStarted != nil {
		r.updateStarted <- struct{}{}
		<-r.updateRelease
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[alertID]
	if !ok || a.Deleted {
		return repository.ErrAlertNotFound
	}
	a.IsActive = active
	snapshot := entities.SnapshotOf(a, entities.ActionModified)
	snapshot.CreatedBy = changedBy
	r.changes = append(r.changes, *snapshot)
	return nil
}

func (r *stubRepo) SoftDeleteAlert(_ context.Context, alertID string, changedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[alertID]
	if !ok || a.Deleted {
		return repository.ErrAlertNotFound
	}
	a.Deleted = true
	snapshot := entities.SnapshotOf(a, entities.ActionDeleted)
	snapshot.CreatedBy = changedBy
	r.changes = append(r.changes, *snapshot)
	return nil
}

func (r *stubRepo) ListChanges(_ context.Context, filter repository.ChangeFilter) ([]entities.AlertChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.AlertChange
	for i := len(r.changes) - 1; i >= 0; i-- {
		change := r.changes[i]
		if filter.SID > 0 && change.SID != filter.SID {
			continue
		}
		if filter.AlertID != "" && change.AlertID != filter.AlertID {
			continue
		}
		out = append(out, change)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *stubRepo) DeleteChangesBefore(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *stubRepo) ListChannels(_ context.Context, sid uint, otaOnly bool) ([]entities.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channelQueries++
	if r.failChannels {
		return nil, errors.New("channels table unavailable")
	}
	var out []entities.Channel
	for _, ch := range r.channels {
		if ch.SID != sid {
			continue
		}
		if otaOnly && !ch.OTA {
			continue
		}
		out = append(out, ch)
	}
	return out, nil
}

func (r *stubRepo) ListProperties(_ context.Context, sid uint, includeSubscriber bool) ([]entities.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failProps {
		return nil, errors.New("properties table unavailable")
	}
	var out []entities.Property
	for _, p := range r.props {
		if p.SID != sid {
			continue
		}
		if !includeSubscriber && p.IsSubscriber {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func newTestController(t *testing.T, repo repository.AlertRepository) *Controller {
	t.Helper()
	settings := conf.Default()
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	notices := notification.NewService(&notification.ServiceConfig{TTL: time.Minute})
	return New(settings, repo, notices, log)
}

// doRequest runs one request through the controller and decodes the
// envelope.
func doRequest(t *testing.T, c *Controller, method, target, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

const echoHeaderContentType = "Content-Type"

func TestGetAlertSchema(t *testing.T) {
	c := newTestController(t, newStubRepo())

	code, env := doRequest(t, c, http.MethodGet, "/api/v1/alerts/schema", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Status)
	assert.NotNil(t, env.Body)
}

func TestListAlerts_CompilesRows(t *testing.T) {
	repo := newStubRepo()
	require.NoError(t, repo.CreateAlert(context.Background(), &entities.AlertDefinition{
		AlertID:        "a-1",
		SID:            42,
		AlertType:      "ADR",
		AlertOn:        "Subscriber",
		AlertRule:      "Decreased",
		ThresholdValue: 12.6,
		IsPercentage:   true,
		WithRespectTo:  "Competitor",
		WRTCompsetList: "5",
		CreatedBy:      "tester",
		IsActive:       true,
	}))
	c := newTestController(t, repo)

	code, env := doRequest(t, c, http.MethodGet, "/api/v1/alerts?sid=42", "")
	assert.Equal(t, http.StatusOK, code)
	require.True(t, env.Status)

	rows, err := json.Marshal(env.Body)
	require.NoError(t, err)
	assert.Contains(t, string(rows), "Competitor Grand Hotel ADR < 13 %")
}

func TestListAlerts_RequiresSID(t *testing.T) {
	c := newTestController(t, newStubRepo())

	code, env := doRequest(t, c, http.MethodGet, "/api/v1/alerts", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Status)
	assert.NotEmpty(t, env.Message)
}

func TestSaveAlert_CreateAndUpdate(t *testing.T) {
	repo := newStubRepo()
	c := newTestController(t, repo)

	code, env := doRequest(t, c, http.MethodPost, "/api/v1/alerts/ADR",
		`{"SID":42,"AlertOn":"Subscriber","AlertRule":"Increased","ThresholdValue":5,"WithRespectTo":"Subscriber","CompsetList":"1","WRTCompsetList":"1","CreatedBy":"tester"}`)
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Status)

	body := env.Body.(map[string]any)
	alertID := body["AlertId"].(string)
	require.NotEmpty(t, alertID)

	stored, err := repo.GetAlert(context.Background(), alertID)
	require.NoError(t, err)
	assert.Equal(t, "ADR", stored.AlertType)
	assert.True(t, stored.IsActive)

	// Same AlertID means replace, not insert.
	code, env = doRequest(t, c, http.MethodPost, "/api/v1/alerts/ADR",
		`{"AlertId":"`+alertID+`","SID":42,"AlertOn":"Subscriber","AlertRule":"Increased","ThresholdValue":9,"WithRespectTo":"Subscriber","CompsetList":"1","WRTCompsetList":"1","CreatedBy":"tester"}`)
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Status)

	stored, err = repo.GetAlert(context.Background(), alertID)
	require.NoError(t, err)
	assert.Equal(t, 9.0, stored.ThresholdValue)
}

func TestSaveAlert_UnknownType(t *testing.T) {
	c := newTestController(t, newStubRepo())

	code, env := doRequest(t, c, http.MethodPost, "/api/v1/alerts/Bogus", `{"SID":42}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Status)
}

func TestSaveAlert_OTARankingRouteName(t *testing.T) {
	repo := newStubRepo()
	c := newTestController(t, repo)

	code, env := doRequest(t, c, http.MethodPost, "/api/v1/alerts/OTARanking",
		`{"SID":42,"AlertOn":"Subscriber","AlertRule":"Increased","ThresholdValue":3,"Channel":10,"CompID":1}`)
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Status)

	alertID := env.Body.(map[string]any)["AlertId"].(string)
	stored, err := repo.GetAlert(context.Background(), alertID)
	require.NoError(t, err)
	assert.Equal(t, "OTA Ranking", stored.AlertType)
}

func TestSaveAlert_HMIDTranslation(t *testing.T) {
	repo := newStubRepo()
	c := newTestController(t, repo)

	code, env := doRequest(t, c, http.MethodPost, "/api/v1/alerts/ADR",
		`{"SID":42,"AlertOn":"Competitor","AlertRule":"Increased","ThresholdValue":5,"WithRespectTo":"Subscriber","CompsetList":"105","WRTCompsetList":"101","useHmids":true}`)
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Status)

	alertID := env.Body.(map[string]any)["AlertId"].(string)
	stored, err := repo.GetAlert(context.Background(), alertID)
	require.NoError(t, err)
	assert.Equal(t, "5", stored.CompsetList, "hotel-market ids map to property ids")
	assert.Equal(t, "1", stored.WRTCompsetList)

	// Unknown hmids are rejected, not dropped.
	code, env = doRequest(t, c, http.MethodPost, "/api/v1/alerts/ADR",
		`{"SID":42,"AlertOn":"Competitor","AlertRule":"Increased","ThresholdValue":5,"CompsetList":"999","useHmids":true}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Status)
}

func TestUpdateAlert_ToggleAndDelete(t *testing.T) {
	repo := newStubRepo()
	require.NoError(t, repo.CreateAlert(context.Background(), &entities.AlertDefinition{
		AlertID: "a-1", SID: 42, AlertType: "ADR", IsActive: true,
	}))
	c := newTestController(t, repo)

	code, env := doRequest(t, c, http.MethodPatch, "/api/v1/alerts/a-1",
		`{"field":"active","status":false,"CreatedBy":"toggler"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Status)

	stored, err := repo.GetAlert(context.Background(), "a-1")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	code, env = doRequest(t, c, http.MethodPatch, "/api/v1/alerts/a-1",
		`{"field":"delete","CreatedBy":"remover"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Status)

	_, err = repo.GetAlert(context.Background(), "a-1")
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)

	code, env = doRequest(t, c, http.MethodPatch, "/api/v1/alerts/a-1",
		`{"field":"delete"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Status)
}

func TestUpdateAlert_UnknownField(t *testing.T) {
	c := newTestController(t, newStubRepo())

	code, env := doRequest(t, c, http.MethodPatch, "/api/v1/alerts/a-1",
		`{"field":"rename"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Status)
}

func TestUpdateAlert_DoubleSubmitGuard(t *testing.T) {
	repo := newStubRepo()
	require.NoError(t, repo.CreateAlert(context.Background(), &entities.AlertDefinition{
		AlertID: "a-1", SID: 42, AlertType: "ADR", IsActive: true,
	}))
	repo.updateStarted = make(chan struct{})
	repo.updateRelease = make(chan struct{})
	c := newTestController(t, repo)

	done := make(chan envelope)
	go func() {
		_, env := doRequest(t, c, http.MethodPatch, "/api/v1/alerts/a-1",
			`{"field":"active","status":false}`)
		done <- env
	}()

	<-repo.updateStarted

	// Second update for the same rule while the first is in flight.
	code, env := doRequest(t, c, http.MethodPatch, "/api/v1/alerts/a-1",
		`{"field":"active","status":true}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Status)

	close(repo.updateRelease)
	first := <-done
	assert.True(t, first.Status)
}
