package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"questNetAPI/internal/notification"
)

// PushProvider abstracts the FCM client so the service can run (and be
// tested) without Firebase credentials.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) error
}

// NotificationService records owner-facing events (approvals, payouts,
// purchases) and pushes them to registered devices through a small worker
// pool. Recording is synchronous; pushing never blocks the business path.
type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider

	jobQueue chan pushJob
	stopChan chan struct{}
	wg       sync.WaitGroup
}

type pushJob struct {
	ownerID int64
	title   string
	body    string
	data    map[string]string
}

const notificationWorkers = 3

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	s := &NotificationService{
		db:       db,
		jobQueue: make(chan pushJob, 100),
		stopChan: make(chan struct{}),
	}

	for i := 0; i < notificationWorkers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

// SetPushProvider injects the real FCM provider from main.go. Without one,
// notifications are stored but never pushed.
func (s *NotificationService) SetPushProvider(provider PushProvider) {
	s.pushProvider = provider
}

func (s *NotificationService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *NotificationService) worker() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.jobQueue:
			s.processPush(job)
		case <-s.stopChan:
			return
		}
	}
}

func (s *NotificationService) processPush(job pushJob) {
	if s.pushProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := s.deviceTokens(ctx, job.ownerID)
	if err != nil {
		log.Printf("notifications: failed to load device tokens for owner %d: %v", job.ownerID, err)
		return
	}

	if err := s.pushProvider.SendPush(ctx, tokens, job.title, job.body, job.data); err != nil {
		log.Printf("notifications: push to owner %d failed: %v", job.ownerID, err)
	}
}

// Notify stores the notification and queues a best-effort push. A full queue
// drops the push, never the stored row.
func (s *NotificationService) Notify(ctx context.Context, ownerID int64, kind notification.Kind, title, body string) error {
	query := `
		INSERT INTO notifications (id, owner_id, kind, title, body)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.Exec(ctx, query, uuid.New(), ownerID, kind, title, body); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	select {
	case s.jobQueue <- pushJob{ownerID: ownerID, title: title, body: body, data: map[string]string{"kind": string(kind)}}:
	default:
		log.Printf("notifications: push queue full, dropping push for owner %d", ownerID)
	}

	return nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, ownerID int64, unreadOnly bool) ([]notification.Notification, error) {
	query := `
		SELECT id, owner_id, kind, title, body, created_at, read_at
		FROM notifications
		WHERE owner_id = $1
	`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT 50`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Kind, &n.Title, &n.Body, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, ownerID int64) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET read_at = now() WHERE owner_id = $1 AND read_at IS NULL`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, req *notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return fmt.Errorf("device token is required")
	}
	query := `
		INSERT INTO owner_devices (owner_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET owner_id = $1, platform = $3
	`
	if _, err := s.db.Exec(ctx, query, req.OwnerID, req.Token, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) deviceTokens(ctx context.Context, ownerID int64) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT owner_id, token, platform FROM owner_devices WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.OwnerID, &t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
