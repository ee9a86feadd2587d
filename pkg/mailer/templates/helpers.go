package templates

import (
	"time"
)

// Branding holds the product details shown in every email.
type Branding struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) { d.Time = t.UTC().Format("02 January 2006, 15:04 MST") }
}

func WithPreviousEmail(email string) Option {
	return func(d *EmailData) { d.PreviousEmail = email }
}

func WithFields(fields []string) Option {
	return func(d *EmailData) { d.Fields = append([]string(nil), fields...) }
}

// NewBaseEmailData fills the common fields, then applies the options.
func NewBaseEmailData(b Branding, typ, email, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Email:          email,
		RecipientEmail: recipient,
		Type:           typ,
		AppName:        b.AppName,
		CompanyName:    b.CompanyName,
		SupportURL:     b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(b Branding, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(b, Welcome, email, email, opts...))
}

// NewAccountUpdatedData describes a change to the account now registered under email.
// recipient differs from email when the previous address is being told about a change.
func NewAccountUpdatedData(b Branding, email, recipient string, fields []string, opts ...Option) map[string]any {
	opts = append([]Option{WithFields(fields)}, opts...)
	return ToMap(NewBaseEmailData(b, AccountUpdated, email, recipient, opts...))
}
