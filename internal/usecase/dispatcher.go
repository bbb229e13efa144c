package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

// Dispatcher fires notifications after a reconciliation has been persisted.
// Delivery is best effort: failures and panics are logged and never reach
// the webhook response.
type Dispatcher struct {
	Sender   NotificationSender
	Profiles entity.ProfileRepositoryInterface
	Timeout  time.Duration
	Logger   *slog.Logger
	OnResult func(n entity.Notification, err error)

	wg sync.WaitGroup
}

func NewDispatcher(sender NotificationSender, profiles entity.ProfileRepositoryInterface, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		Sender:   sender,
		Profiles: profiles,
		Timeout:  timeout,
		Logger:   logger,
	}
}

// Notify returns immediately; the send runs on its own goroutine, detached
// from the request's cancellation.
func (d *Dispatcher) Notify(ctx context.Context, n entity.Notification) {
	if d.Sender == nil {
		d.Logger.Debug("notifications disabled", "kind", n.Kind, "user_id", n.UserID)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.Timeout)
		defer cancel()

		err := d.deliver(sendCtx, n)
		if err != nil {
			d.Logger.Error("notification failed", "kind", n.Kind, "user_id", n.UserID, "error", err)
		} else {
			d.Logger.Info("notification sent", "kind", n.Kind, "user_id", n.UserID, "meeting_id", n.MeetingID)
		}
		if d.OnResult != nil {
			d.OnResult(n, err)
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n entity.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while sending notification: %v", r)
		}
	}()

	if n.RecipientEmail == "" {
		if d.Profiles == nil || n.UserID == "" {
			return fmt.Errorf("no recipient for notification")
		}
		p, err := d.Profiles.FindByID(ctx, n.UserID)
		if err != nil {
			return fmt.Errorf("finding recipient profile: %w", err)
		}
		if p.Email == "" {
			return fmt.Errorf("profile %s has no email", p.ID)
		}
		n.RecipientEmail = p.Email
		n.RecipientName = firstNonEmpty(p.FullName, p.CompanyName)
	}

	return d.Sender.Send(ctx, n)
}
