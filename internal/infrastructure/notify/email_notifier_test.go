package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-account-service/internal/application"
	"github.com/oksasatya/user-account-service/pkg/mailer"
	mailtpl "github.com/oksasatya/user-account-service/pkg/mailer/templates"
)

type published struct {
	msgType string
	job     mailer.EmailJob
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) PublishJSON(_ context.Context, msgType string, body any) error {
	f.msgs = append(f.msgs, published{msgType, body.(mailer.EmailJob)})
	return f.err
}

func newNotifier(pub Publisher) *EmailNotifier {
	n := NewEmailNotifier(pub, mailtpl.Branding{AppName: "Accounts"})
	n.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return n
}

func TestAccountChangedWithoutEmailChange(t *testing.T) {
	pub := &fakePublisher{}
	ev := application.AccountEvent{UserID: uuid.New(), Email: "b@x.com", PreviousEmail: "b@x.com", Fields: []string{"status"}}

	require.NoError(t, newNotifier(pub).AccountChanged(context.Background(), ev))

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, mailtpl.AccountUpdated, msg.msgType)
	assert.Equal(t, "b@x.com", msg.job.To)
	assert.Equal(t, mailtpl.AccountUpdated, msg.job.Template)
	assert.Equal(t, []any{"status"}, msg.job.Data["Fields"])
	assert.Equal(t, "", msg.job.Data["PreviousEmail"])
}

func TestAccountChangedNotifiesBothAddresses(t *testing.T) {
	pub := &fakePublisher{}
	ev := application.AccountEvent{UserID: uuid.New(), Email: "new@x.com", PreviousEmail: "old@x.com", Fields: []string{"email", "password"}}

	require.NoError(t, newNotifier(pub).AccountChanged(context.Background(), ev))

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "new@x.com", pub.msgs[0].job.To)
	assert.Equal(t, "old@x.com", pub.msgs[1].job.To)
	for _, m := range pub.msgs {
		assert.Equal(t, "new@x.com", m.job.Data["Email"])
		assert.Equal(t, "old@x.com", m.job.Data["PreviousEmail"])
		assert.Equal(t, m.job.To, m.job.Data["RecipientEmail"])
		// field names only, never values
		assert.NotContains(t, m.job.Data, "Password")
	}

	// the rendered job must be deliverable by the worker
	for _, m := range pub.msgs {
		assert.NoError(t, mailer.Deliver(context.Background(), discard{}, m.job))
	}
}

func TestAccountRegistered(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, newNotifier(pub).AccountRegistered(context.Background(), application.AccountEvent{UserID: uuid.New(), Email: "a@x.com"}))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, mailtpl.Welcome, pub.msgs[0].job.Template)
	assert.Equal(t, "a@x.com", pub.msgs[0].job.To)
}

func TestPublishFailuresAreReturned(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel closed")}
	ev := application.AccountEvent{Email: "new@x.com", PreviousEmail: "old@x.com", Fields: []string{"email"}}

	err := newNotifier(pub).AccountChanged(context.Background(), ev)

	assert.ErrorContains(t, err, "channel closed")
	assert.Len(t, pub.msgs, 2)
}

type discard struct{}

func (discard) Send(context.Context, string, string, string, string) error { return nil }
