package email

import (
	"fmt"
	"time"
)

// Config holds email delivery configuration.
// Postmark tokens are optional so development environments can run on the
// SMTP fallback or DevProvider alone. SenderEmail and SupportEmail establish
// the sender identity and reply-to behavior for all outbound email.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	// MaxAttempts bounds the retry loop, counting the first try.
	MaxAttempts int `env:"EMAIL_MAX_ATTEMPTS" envDefault:"3"`

	// Per-recipient admission: RateLimit sends per RateWindow, with at most
	// BurstLimit sends inside any trailing BurstWindow.
	RateLimit   int           `env:"EMAIL_RATE_LIMIT" envDefault:"20"`
	RateWindow  time.Duration `env:"EMAIL_RATE_WINDOW" envDefault:"1h"`
	BurstLimit  int           `env:"EMAIL_BURST_LIMIT" envDefault:"5"`
	BurstWindow time.Duration `env:"EMAIL_BURST_WINDOW" envDefault:"1m"`
}

// Validate checks the fields every provider depends on. Provider-specific
// requirements (tokens, SMTP host) are checked by the provider constructors.
func (c Config) Validate() error {
	if c.SenderEmail == "" {
		return fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(c.SenderEmail) {
		return fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if c.SupportEmail == "" {
		return fmt.Errorf("%w: SupportEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(c.SupportEmail) {
		return fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}
	return nil
}
