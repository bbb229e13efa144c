package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/greenlineai/webhook-reconciler/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// DefaultSendTimeout bounds one SMTP exchange when the caller's context has
// no earlier deadline.
const DefaultSendTimeout = 30 * time.Second

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		Dialer:   gomail.NewDialer(host, port, user, password),
		Timeout:  DefaultSendTimeout,
	}
}

// Send delivers n by SMTP. gomail has no context support, so the exchange runs
// in its own goroutine and Send gives up once ctx or Timeout expires. An
// abandoned exchange finishes or fails on its own in the background.
func (s *EmailSender) Send(ctx context.Context, n entity.Notification) error {
	if n.RecipientEmail == "" {
		return fmt.Errorf("notification for %s has no recipient", n.UserID)
	}

	var (
		subject string
		body    bytes.Buffer
	)
	switch n.Kind {
	case entity.NotifyMeetingBooked:
		subject = fmt.Sprintf("New meeting booked with %s", fallback(n.LeadName, "a lead"))
		if err := templates.ExecuteTemplate(&body, "meeting_booked.html", meetingBookedData(n)); err != nil {
			return fmt.Errorf("rendering email template: %w", err)
		}
	default:
		return fmt.Errorf("no email template for %q", n.Kind)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", n.RecipientEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- s.Dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sending email via SMTP: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending email via SMTP: %w", ctx.Err())
	}
}

func meetingBookedData(n entity.Notification) MeetingBookedEmailData {
	return MeetingBookedEmailData{
		RecipientName: fallback(n.RecipientName, "there"),
		LeadName:      fallback(n.LeadName, "A lead"),
		LeadPhone:     n.LeadPhone,
		LeadEmail:     n.LeadEmail,
		When:          n.ScheduledAt.UTC().Format(time.RFC1123),
		Source:        n.Source,
	}
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
