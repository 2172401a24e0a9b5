// Package notification holds the transient notice service: short-lived
// user-facing messages raised by validation failures and rule changes,
// auto-dismissed after a configurable TTL and optionally mirrored to an
// external webhook.
package notification

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/rateintel/rateintel-go/internal/conf"
	"github.com/rateintel/rateintel-go/internal/logger"
	"github.com/rateintel/rateintel-go/internal/observability/metrics"
)

// Notice is one transient user-facing message.
type Notice struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ServiceConfig configures the notice service.
type ServiceConfig struct {
	// TTL is how long a notice stays visible. Zero falls back to the
	// 3-second default the form clients were built around.
	TTL time.Duration
	// Webhook, when non-nil, receives a copy of every notice.
	Webhook *WebhookForwarder
	Logger  logger.Logger
}

// ConfigFromSettings builds a ServiceConfig from loaded settings.
func ConfigFromSettings(settings *conf.NoticeSettings, log logger.Logger) (*ServiceConfig, error) {
	config := &ServiceConfig{
		TTL:    settings.TTL.Std(),
		Logger: log,
	}
	if settings.WebhookURL != "" {
		webhook, err := NewWebhookForwarder(settings.WebhookURL)
		if err != nil {
			return nil, err
		}
		config.Webhook = webhook
	}
	return config, nil
}

const defaultTTL = 3 * time.Second

// Service stores active notices and expires them automatically.
type Service struct {
	notices *gocache.Cache
	ttl     time.Duration
	webhook *WebhookForwarder
	log     logger.Logger
}

// NewService creates a notice service from the given config.
func NewService(config *ServiceConfig) *Service {
	ttl := defaultTTL
	var webhook *WebhookForwarder
	var log logger.Logger
	if config != nil {
		if config.TTL > 0 {
			ttl = config.TTL
		}
		webhook = config.Webhook
		log = config.Logger
	}
	return &Service{
		notices: gocache.New(ttl, 2*ttl),
		ttl:     ttl,
		webhook: webhook,
		log:     log,
	}
}

// Notify raises a transient notice. Satisfies the validation notifier
// contract, so a Service can be wired directly into a form session.
func (s *Service) Notify(message string) {
	s.Raise(context.Background(), message)
}

// Raise stores a notice and mirrors it to the webhook when one is
// configured. Webhook delivery is best effort; a failed forward never
// blocks or fails the notice itself.
func (s *Service) Raise(ctx context.Context, message string) Notice {
	notice := Notice{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: time.Now(),
	}
	s.notices.Set(notice.ID, notice, gocache.DefaultExpiration)
	metrics.IncNoticeRaised()

	if s.webhook != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := s.webhook.Send(ctx, notice); err != nil && s.log != nil {
				s.log.Warn("notice webhook delivery failed",
					logger.String("notice_id", notice.ID),
					logger.Error(err))
			}
		}()
	}
	return notice
}

// Active returns the notices that have not yet expired, oldest first.
func (s *Service) Active() []Notice {
	items := s.notices.Items()
	out := make([]Notice, 0, len(items))
	for _, item := range items {
		if notice, ok := item.Object.(Notice); ok {
			out = append(out, notice)
		}
	}
	// go-cache iterates in map order.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Dismiss removes a notice before its TTL expires.
func (s *Service) Dismiss(id string) {
	s.notices.Delete(id)
}

// TTL returns the configured notice lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}
