package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/i-am-the-robot/Edulife/internal/data/repos"
	types "github.com/i-am-the-robot/Edulife/internal/domain"
	"github.com/i-am-the-robot/Edulife/internal/domain/notify"
	"github.com/i-am-the-robot/Edulife/internal/observability"
	"github.com/i-am-the-robot/Edulife/internal/pkg/dbctx"
	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/realtime"
)

const defaultNotificationLimit = 50

var validPriorities = map[string]struct{}{
	notify.PriorityLow:    {},
	notify.PriorityNormal: {},
	notify.PriorityHigh:   {},
}

type NotificationInput struct {
	StudentID        uuid.UUID
	NotificationType string
	AgentType        string
	Title            string
	Message          string
	ActionData       map[string]any
	Priority         string
	ExpiresAt        *time.Time
}

// NotificationService stores in-app notifications and pushes each change to
// the student's live stream. It is also the agents' inbox.
type NotificationService interface {
	Deliver(ctx context.Context, n *types.Notification) error
	Create(ctx context.Context, in NotificationInput) (*types.Notification, error)
	List(ctx context.Context, studentID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error)
	MarkRead(ctx context.Context, studentID, id uuid.UUID) (*types.Notification, error)
	MarkAllRead(ctx context.Context, studentID uuid.UUID) (int64, error)
	Delete(ctx context.Context, studentID, id uuid.UUID) error
}

type notificationService struct {
	log           *logger.Logger
	notifications repos.NotificationRepo
	students      repos.StudentRepo
	publisher     realtime.Publisher
	metrics       *observability.Metrics
}

func NewNotificationService(
	log *logger.Logger,
	notifications repos.NotificationRepo,
	students repos.StudentRepo,
	publisher realtime.Publisher,
	metrics *observability.Metrics,
) NotificationService {
	return &notificationService{
		log:           log.With("service", "NotificationService"),
		notifications: notifications,
		students:      students,
		publisher:     publisher,
		metrics:       metrics,
	}
}

func (s *notificationService) emit(ctx context.Context, studentID uuid.UUID, event realtime.SSEEvent, data any) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, realtime.SSEMessage{
		Channel: realtime.StudentChannel(studentID),
		Event:   event,
		Data:    data,
	})
	if err != nil {
		s.log.Warn("Publish notification event failed", "student_id", studentID, "event", event, "error", err)
	}
}

func (s *notificationService) Deliver(ctx context.Context, n *types.Notification) error {
	if n == nil {
		return fmt.Errorf("nil notification")
	}
	if n.Priority == "" {
		n.Priority = notify.PriorityNormal
	}
	if err := s.notifications.Create(dbctx.New(ctx), n); err != nil {
		s.metrics.IncNotification("in_app", false)
		return fmt.Errorf("store notification: %w", err)
	}
	s.metrics.IncNotification("in_app", true)
	s.emit(ctx, n.StudentID, realtime.SSEEventNotification, map[string]any{"notification": n})
	return nil
}

func (s *notificationService) requireStudent(ctx context.Context, id uuid.UUID) error {
	st, err := s.students.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return fmt.Errorf("get student: %w", err)
	}
	if st == nil {
		return notFound("student")
	}
	return nil
}

func (s *notificationService) Create(ctx context.Context, in NotificationInput) (*types.Notification, error) {
	title := strings.TrimSpace(in.Title)
	message := strings.TrimSpace(in.Message)
	if title == "" || message == "" {
		return nil, invalid("title_and_message_required", "title and message are required")
	}
	priority := strings.TrimSpace(in.Priority)
	if priority == "" {
		priority = notify.PriorityNormal
	}
	if _, ok := validPriorities[priority]; !ok {
		return nil, invalid("invalid_priority", "priority must be low, normal or high")
	}
	if err := s.requireStudent(ctx, in.StudentID); err != nil {
		return nil, err
	}
	kind := strings.TrimSpace(in.NotificationType)
	if kind == "" {
		kind = "general"
	}
	n := &types.Notification{
		StudentID:        in.StudentID,
		NotificationType: kind,
		AgentType:        strings.TrimSpace(in.AgentType),
		Title:            title,
		Message:          message,
		Priority:         priority,
		ExpiresAt:        in.ExpiresAt,
	}
	if len(in.ActionData) > 0 {
		raw, err := json.Marshal(in.ActionData)
		if err != nil {
			return nil, invalid("invalid_action_data", "action data must be a JSON object")
		}
		n.ActionData = datatypes.JSON(raw)
	}
	if err := s.Deliver(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *notificationService) List(ctx context.Context, studentID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	rows, err := s.notifications.ListByStudent(dbctx.New(ctx), studentID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

func (s *notificationService) owned(ctx context.Context, studentID, id uuid.UUID) (*types.Notification, error) {
	n, err := s.notifications.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	if n == nil || n.StudentID != studentID {
		return nil, notFound("notification")
	}
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, studentID, id uuid.UUID) (*types.Notification, error) {
	n, err := s.owned(ctx, studentID, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.notifications.MarkRead(dbctx.New(ctx), id); err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n, err = s.owned(ctx, studentID, id)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, studentID, realtime.SSEEventNotificationRead, map[string]any{"notification_id": id})
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, studentID uuid.UUID) (int64, error) {
	n, err := s.notifications.MarkAllRead(dbctx.New(ctx), studentID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	if n > 0 {
		s.emit(ctx, studentID, realtime.SSEEventNotificationRead, map[string]any{"all": true, "count": n})
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, studentID, id uuid.UUID) error {
	if _, err := s.owned(ctx, studentID, id); err != nil {
		return err
	}
	if err := s.notifications.Delete(dbctx.New(ctx), id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	s.emit(ctx, studentID, realtime.SSEEventNotificationGone, map[string]any{"notification_id": id})
	return nil
}
