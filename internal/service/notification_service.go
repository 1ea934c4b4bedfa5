package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/admin-ops-service/internal/config"
	"github.com/spec-kit/admin-ops-service/internal/events"
)

// NotificationService turns workflow events into operator notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleSLABreached)
	n.dispatcher.Subscribe(events.EventIncidentCreated, n.handleIncidentCreated)
	n.dispatcher.Subscribe(events.EventRollbackEscalated, n.handleRollbackEscalated)
	n.dispatcher.Subscribe(events.EventBanIssued, n.handleModeration)
	n.dispatcher.Subscribe(events.EventAppealSubmitted, n.handleModeration)
	n.dispatcher.Subscribe(events.EventAppealResolved, n.handleModeration)
}

func (n *NotificationService) handleSLABreached(ctx context.Context, event events.Event) error {
	n.logger.Warn("SLABreached",
		zap.String("entity_kind", string(event.EntityKind)),
		zap.String("entity_id", event.EntityID),
		zap.Any("payload", event.Payload))
	n.notify(ctx, n.cfg.OnCallChannel, event)
	return nil
}

func (n *NotificationService) handleIncidentCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("IncidentCreated", zap.String("incident_id", event.EntityID))
	n.notify(ctx, n.cfg.OnCallChannel, event)
	return nil
}

func (n *NotificationService) handleRollbackEscalated(ctx context.Context, event events.Event) error {
	n.logger.Error("RollbackEscalated", zap.String("batch_id", event.EntityID), zap.Any("payload", event.Payload))
	n.notify(ctx, n.cfg.OnCallChannel, event)
	return nil
}

func (n *NotificationService) handleModeration(ctx context.Context, event events.Event) error {
	n.logger.Info("ModerationEvent",
		zap.String("event_type", string(event.Type)),
		zap.String("entity_id", event.EntityID))
	n.notify(ctx, n.cfg.ModerationChannel, event)
	return nil
}

func (n *NotificationService) notify(_ context.Context, channel string, event events.Event) {
	if strings.TrimSpace(channel) == "" {
		return
	}
	n.logger.Debug("notify",
		zap.String("channel", channel),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("entity_id", event.EntityID))
}
