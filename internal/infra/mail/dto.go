package mail

import (
	"time"

	"gopkg.in/gomail.v2"
)

type MeetingBookedEmailData struct {
	RecipientName string
	LeadName      string
	LeadPhone     string
	LeadEmail     string
	When          string
	Source        string
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Dialer   Dialer
	Timeout  time.Duration
}
