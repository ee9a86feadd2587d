package notify

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/user-account-service/internal/application"
	"github.com/oksasatya/user-account-service/pkg/mailer"
	mailtpl "github.com/oksasatya/user-account-service/pkg/mailer/templates"
)

// Publisher puts a message on the email queue.
type Publisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

// EmailNotifier turns account events into email jobs for cmd/email_worker.
type EmailNotifier struct {
	pub   Publisher
	brand mailtpl.Branding
	now   func() time.Time
}

func NewEmailNotifier(pub Publisher, brand mailtpl.Branding) *EmailNotifier {
	return &EmailNotifier{pub: pub, brand: brand, now: time.Now}
}

func (n *EmailNotifier) AccountRegistered(ctx context.Context, ev application.AccountEvent) error {
	job := mailer.EmailJob{
		To:       ev.Email,
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(n.brand, ev.Email, mailtpl.WithTime(n.now())),
	}
	return n.pub.PublishJSON(ctx, job.Template, job)
}

// AccountChanged mails the account's current address. When the email itself changed,
// the previous address is told as well.
func (n *EmailNotifier) AccountChanged(ctx context.Context, ev application.AccountEvent) error {
	opts := []mailtpl.Option{mailtpl.WithTime(n.now())}
	recipients := []string{ev.Email}
	if ev.PreviousEmail != "" && ev.PreviousEmail != ev.Email {
		recipients = append(recipients, ev.PreviousEmail)
		opts = append(opts, mailtpl.WithPreviousEmail(ev.PreviousEmail))
	}

	var errs []error
	for _, to := range recipients {
		job := mailer.EmailJob{
			To:       to,
			Template: mailtpl.AccountUpdated,
			Data:     mailtpl.NewAccountUpdatedData(n.brand, ev.Email, to, ev.Fields, opts...),
		}
		if err := n.pub.PublishJSON(ctx, job.Template, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ application.AccountNotifier = (*EmailNotifier)(nil)
