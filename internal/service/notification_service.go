package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/pkg/jobs"
)

// NotificationJobType is the queue job type for in-app notifications.
const NotificationJobType = "notification.deliver"

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// NotificationService delivers in-app notifications asynchronously.
// Notify never fails the calling workflow.
type NotificationService struct {
	store   notificationStore
	queue   jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service. A queue must be attached before Notify delivers anything.
func NewNotificationService(store notificationStore, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, metrics: metrics, logger: logger}
}

// AttachQueue wires the worker queue whose handler is HandleJob.
func (s *NotificationService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Notify enqueues a notification for userID. Failures are logged and dropped.
func (s *NotificationService) Notify(ctx context.Context, userID, eventType string, payload interface{}) {
	if s == nil || userID == "" {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal notification payload", zap.String("event", eventType), zap.Error(err))
		s.metrics.RecordNotificationEnqueue("dropped")
		return
	}
	if s.queue == nil {
		s.logger.Warn("notification queue not attached", zap.String("event", eventType))
		s.metrics.RecordNotificationEnqueue("dropped")
		return
	}
	job := jobs.Job{
		Type:    NotificationJobType,
		Payload: models.Notification{UserID: userID, EventType: eventType, Payload: raw},
	}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.logger.Warn("enqueue notification",
			zap.String("event", eventType),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		s.metrics.RecordNotificationEnqueue("dropped")
		return
	}
	s.metrics.RecordNotificationEnqueue("queued")
}

// HandleJob persists a queued notification.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	if s.store == nil {
		return errors.New("notification store not configured")
	}
	return s.store.Create(ctx, &notification)
}

// ListForUser returns the latest notifications of a user.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	items, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}
