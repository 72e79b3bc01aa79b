package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// PostmarkProvider sends through Postmark's transactional API. It is the
// primary provider in production chains.
type PostmarkProvider struct {
	client *postmark.Client
	cfg    Config
}

// NewPostmarkProvider creates the Postmark-backed provider. Both tokens are
// required so a misconfigured deployment fails at startup instead of at the
// first send.
func NewPostmarkProvider(cfg Config) (*PostmarkProvider, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &PostmarkProvider{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		cfg:    cfg,
	}, nil
}

// Name implements Provider.
func (p *PostmarkProvider) Name() string { return "postmark" }

// SendEmail implements Provider. Tracking covers opens and HTML link clicks
// only; Reply-To routes responses to the support address.
func (p *PostmarkProvider) SendEmail(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       p.cfg.SenderEmail,
		ReplyTo:    p.cfg.SupportEmail,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		HTMLBody:   msg.BodyHTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		// Transport-level failures (network, timeouts) are worth retrying.
		return "", errors.Join(channel.ErrTransientProvider, ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return "", errors.Join(
			classifyPostmarkCode(resp.ErrorCode),
			ErrSendFailed,
			fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message),
		)
	}

	return resp.MessageID, nil
}

// classifyPostmarkCode buckets Postmark API error codes. Codes naming a
// broken request or recipient are permanent; everything else, including
// maintenance and throttling, stays retryable.
func classifyPostmarkCode(code int64) error {
	switch code {
	case 10, // bad or missing API token
		300, // invalid email request
		401, // sender signature not found
		402, // sender signature not confirmed
		405, // not allowed to send
		406: // inactive recipient
		return channel.ErrPermanentProvider
	case 429: // rate limit exceeded
		return channel.ErrRateLimited
	default:
		return channel.ErrTransientProvider
	}
}
