package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/events"
)

// EventCounter records that an event was observed.
type EventCounter interface {
	RecordTicketEvent(eventType string)
}

// NotificationService reacts to ticket events. Delivery is best effort: it
// logs who should be told and counts the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	counter    EventCounter
}

// NewNotificationService creates the service. counter may be nil.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, counter EventCounter) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		counter:    counter,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketResponseAdded, n.handleTicketResponseAdded)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventUserDeactivated, n.handleUserDeactivated)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.count(event)
	n.logger.Info("TicketCreated",
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketResponseAdded(_ context.Context, event events.Event) error {
	n.count(event)
	payload, _ := event.Payload.(events.TicketResponseAddedPayload)
	fields := []zap.Field{
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.UserID),
		zap.String("response_id", payload.ResponseID),
	}
	if payload.OwnerID != "" && payload.OwnerID != event.Actor.UserID {
		fields = append(fields, zap.String("notify_user_id", payload.OwnerID))
	}
	n.logger.Info("TicketResponseAdded", fields...)
	return nil
}

func (n *NotificationService) handleTicketUpdated(_ context.Context, event events.Event) error {
	n.count(event)
	fields := []zap.Field{
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.UserID),
	}
	if payload, ok := event.Payload.(events.TicketUpdatedPayload); ok {
		fields = append(fields,
			zap.String("old_status", string(payload.OldStatus)),
			zap.String("new_status", string(payload.NewStatus)))
		if payload.NewAssignedTo != nil {
			fields = append(fields, zap.String("notify_user_id", *payload.NewAssignedTo))
		}
	}
	n.logger.Info("TicketUpdated", fields...)
	return nil
}

func (n *NotificationService) handleUserDeactivated(_ context.Context, event events.Event) error {
	n.count(event)
	n.logger.Info("UserDeactivated", zap.String("user_id", event.Actor.UserID))
	return nil
}

func (n *NotificationService) count(event events.Event) {
	if n.counter != nil {
		n.counter.RecordTicketEvent(string(event.Type))
	}
}
