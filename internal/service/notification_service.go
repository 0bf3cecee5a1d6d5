package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"riddlerush/internal/clock"
	"riddlerush/internal/model"
	"riddlerush/internal/repository"
)

type NotificationService struct {
	repo        repository.NotificationRepo
	clock       clock.Clock
	broadcaster Broadcaster
}

func NewNotificationService(repo repository.NotificationRepo, clk clock.Clock) *NotificationService {
	return &NotificationService{
		repo:        repo,
		clock:       clk,
		broadcaster: nopBroadcaster{},
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *NotificationService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Notify stores a notification and pushes it to the receiver.
func (s *NotificationService) Notify(ctx context.Context, creatorID, receiverID string, body model.NotificationBody) (*model.Notification, error) {
	n := model.NewNotification(uuid.New().String(), creatorID, receiverID, body, s.clock.Now())
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store %s notification: %w", n.Kind, err)
	}
	s.broadcaster.NotifyUser(receiverID, EventNotification, n)
	return n, nil
}

func (s *NotificationService) Get(ctx context.Context, id string) (*model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return n, nil
}

func (s *NotificationService) Unread(ctx context.Context, userID string) ([]*model.Notification, error) {
	list, err := s.repo.ListUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*model.Notification{}
	}
	return list, nil
}

// MarkRead marks one of userID's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.ReceiverID != userID {
		return fmt.Errorf("notification %s: %w", id, ErrForbidden)
	}
	return s.repo.MarkRead(ctx, id)
}

// PendingJoinRequest returns the unread join request of requesterID for
// roomID, or nil.
func (s *NotificationService) PendingJoinRequest(ctx context.Context, roomID, requesterID string) (*model.Notification, error) {
	return s.repo.PendingJoinRequest(ctx, roomID, requesterID)
}
