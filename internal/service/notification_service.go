package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"
	"github.com/qrewards/qrewards/internal/logger"
	"github.com/qrewards/qrewards/internal/models"
	"github.com/qrewards/qrewards/internal/repository"
)

// ClaimNotifyQueue 领取通知任务入队
type ClaimNotifyQueue interface {
	Enabled() bool
	EnqueueClaimNotify(ctx context.Context, notificationID uint) error
}

// NotificationService 领取通知服务
// claim_notifications 行是去重点：已 sent 的行不会再次投递
type NotificationService struct {
	cfg       config.NotifyConfig
	notifRepo repository.ClaimNotificationRepository
	claimRepo repository.ClaimRecordRepository
	email     *EmailService
	sms       *SMSService
	queue     ClaimNotifyQueue
	audit     *AuditService
	inflight  sync.WaitGroup
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	cfg config.NotifyConfig,
	notifRepo repository.ClaimNotificationRepository,
	claimRepo repository.ClaimRecordRepository,
	email *EmailService,
	sms *SMSService,
	queue ClaimNotifyQueue,
	audit *AuditService,
) *NotificationService {
	return &NotificationService{
		cfg:       cfg,
		notifRepo: notifRepo,
		claimRepo: claimRepo,
		email:     email,
		sms:       sms,
		queue:     queue,
		audit:     audit,
	}
}

// Dispatch 为领取记录创建通知并投递，返回通知行的初始状态
func (s *NotificationService) Dispatch(ctx context.Context, record *models.ClaimRecord, card *models.Card) string {
	if record == nil {
		return constants.ClaimNotificationStatusSkipped
	}
	n := &models.ClaimNotification{
		ClaimRecordID: record.ID,
		CardID:        record.CardID,
		Channel:       record.Channel,
		Contact:       record.Contact,
		Locale:        record.Locale,
		Status:        constants.ClaimNotificationStatusPending,
	}
	if !s.channelEnabled(record.Channel) {
		n.Status = constants.ClaimNotificationStatusSkipped
		n.LastError = "channel disabled"
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		logger.Ctx(ctx).Warnw("claim_notify_failed", "claim_no", record.ClaimNo, "stage", "create", "error", err)
		return constants.ClaimNotificationStatusFailed
	}
	if n.Status == constants.ClaimNotificationStatusSkipped {
		return n.Status
	}
	s.enqueue(ctx, n.ID)
	return n.Status
}

// Deliver 投递一条通知（队列 worker 与后台 goroutine 共用）
// 返回 error 表示可重试的失败
func (s *NotificationService) Deliver(ctx context.Context, notificationID uint) error {
	n, err := s.notifRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotificationNotFound
	}
	if n.Status == constants.ClaimNotificationStatusSent {
		return nil
	}
	started, err := s.notifRepo.BeginAttempt(ctx, n.ID)
	if err != nil {
		return err
	}
	if !started {
		return nil
	}
	attempts := n.Attempts + 1

	record, err := s.claimRepo.GetByID(ctx, n.ClaimRecordID)
	if err != nil {
		return err
	}
	if record == nil {
		_ = s.notifRepo.MarkFailed(ctx, n.ID, constants.ClaimNotificationStatusFailed, "claim record missing")
		return nil
	}

	msg := ClaimMessage{ClaimNo: record.ClaimNo, Locale: n.Locale}
	if record.Card != nil {
		msg.BusinessName = record.Card.BusinessName
		msg.Header = record.Card.Header
		msg.Subheader = record.Card.Subheader
		msg.Address = record.Card.Address
	}

	sendErr := s.send(ctx, n.Channel, n.Contact, msg)
	log := logger.Ctx(ctx, "notification_id", n.ID, "claim_no", record.ClaimNo, "channel", n.Channel, "attempts", attempts)
	switch {
	case sendErr == nil:
		if err := s.notifRepo.MarkSent(ctx, n.ID, time.Now()); err != nil {
			log.Warnw("claim_notify_mark_sent_failed", "error", err)
		}
		log.Infow("claim_notify_sent")
		return nil
	case isChannelDisabled(sendErr):
		_ = s.notifRepo.MarkFailed(ctx, n.ID, constants.ClaimNotificationStatusSkipped, sendErr.Error())
		log.Infow("claim_notify_skipped", "reason", sendErr.Error())
		return nil
	case isPermanentSendError(sendErr):
		_ = s.notifRepo.MarkFailed(ctx, n.ID, constants.ClaimNotificationStatusFailed, sendErr.Error())
		log.Warnw("claim_notify_failed", "error", sendErr, "retry", false)
		return nil
	}

	status := constants.ClaimNotificationStatusPending
	if attempts >= s.maxAttempts() {
		status = constants.ClaimNotificationStatusFailed
	}
	_ = s.notifRepo.MarkFailed(ctx, n.ID, status, sendErr.Error())
	log.Warnw("claim_notify_failed", "error", sendErr, "retry", status == constants.ClaimNotificationStatusPending)
	if status == constants.ClaimNotificationStatusFailed {
		return nil
	}
	return sendErr
}

// RequeuePending 巡检长时间停留在 pending 的通知并重新投递
func (s *NotificationService) RequeuePending(ctx context.Context, now time.Time) (int, error) {
	before := now.Add(-time.Duration(s.requeueAfterSeconds()) * time.Second)
	items, err := s.notifRepo.ListStalePending(ctx, before, s.cfg.SweepBatchSize)
	if err != nil {
		return 0, err
	}
	requeued := 0
	for _, item := range items {
		if item.Attempts >= s.maxAttempts() {
			_ = s.notifRepo.MarkFailed(ctx, item.ID, constants.ClaimNotificationStatusFailed, "max attempts reached")
			continue
		}
		if err := s.notifRepo.Touch(ctx, item.ID); err != nil {
			return requeued, err
		}
		s.enqueue(ctx, item.ID)
		requeued++
	}
	if requeued > 0 {
		logger.Ctx(ctx).Infow("claim_notify_requeued", "count", requeued)
	}
	return requeued, nil
}

// Renotify 管理端手动重发
func (s *NotificationService) Renotify(ctx context.Context, op Operator, claimID uint) (*models.ClaimNotification, error) {
	record, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrClaimNotFound
	}

	n := record.Notification
	switch {
	case n == nil:
		s.Dispatch(ctx, record, record.Card)
	case n.Status == constants.ClaimNotificationStatusSent:
		return nil, ErrNotificationAlreadySent
	default:
		if err := s.notifRepo.ResetPending(ctx, n.ID); err != nil {
			return nil, err
		}
		s.enqueue(ctx, n.ID)
	}

	s.audit.RecordFor(ctx, op, models.AuditActionClaimRenotify, "claim", record.ID, models.JSON{"claim_no": record.ClaimNo})
	return s.notifRepo.GetByClaimRecordID(ctx, record.ID)
}

// Drain 等待后台投递完成（进程退出前调用）
func (s *NotificationService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue 优先入队；队列不可用时在后台 goroutine 中直接投递
func (s *NotificationService) enqueue(ctx context.Context, notificationID uint) {
	if s.queue != nil && s.queue.Enabled() {
		err := s.queue.EnqueueClaimNotify(ctx, notificationID)
		if err == nil {
			return
		}
		logger.Ctx(ctx).Warnw("claim_notify_enqueue_failed", "notification_id", notificationID, "error", err)
	}

	requestID := logger.RequestID(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		bg, cancel := context.WithTimeout(logger.WithRequestID(context.Background(), requestID), s.timeout())
		defer cancel()
		if err := s.Deliver(bg, notificationID); err != nil {
			logger.Ctx(bg).Warnw("claim_notify_failed", "notification_id", notificationID, "stage", "detached", "error", err)
		}
	}()
}

func (s *NotificationService) send(ctx context.Context, channel, contact string, msg ClaimMessage) error {
	switch channel {
	case constants.ClaimChannelEmail:
		if s.email == nil {
			return ErrEmailServiceDisabled
		}
		return s.email.SendClaimNotification(contact, msg)
	case constants.ClaimChannelSMS:
		if s.sms == nil {
			return ErrSMSServiceDisabled
		}
		return s.sms.SendClaimNotification(ctx, contact, msg)
	default:
		return ErrClaimChannelInvalid
	}
}

func (s *NotificationService) channelEnabled(channel string) bool {
	switch channel {
	case constants.ClaimChannelEmail:
		return s.email.Enabled()
	case constants.ClaimChannelSMS:
		return s.sms.Enabled()
	default:
		return false
	}
}

func (s *NotificationService) maxAttempts() int {
	if s.cfg.MaxAttempts <= 0 {
		return 5
	}
	return s.cfg.MaxAttempts
}

func (s *NotificationService) requeueAfterSeconds() int {
	if s.cfg.RequeueAfterSeconds <= 0 {
		return 300
	}
	return s.cfg.RequeueAfterSeconds
}

func (s *NotificationService) timeout() time.Duration {
	if s.cfg.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.cfg.TimeoutSeconds) * time.Second
}

func isChannelDisabled(err error) bool {
	return errors.Is(err, ErrEmailServiceDisabled) || errors.Is(err, ErrSMSServiceDisabled)
}

func isPermanentSendError(err error) bool {
	return errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInvalidPhone) ||
		errors.Is(err, ErrEmailRecipientRejected) ||
		errors.Is(err, ErrClaimChannelInvalid) ||
		errors.Is(err, ErrEmailServiceNotConfigured) ||
		errors.Is(err, ErrSMSServiceNotConfigured)
}
