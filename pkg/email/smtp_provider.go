package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// SMTPProvider delivers over plain SMTP. It is the fallback provider in
// production chains and the primary one for self-hosted deployments.
//
// Port 465 uses implicit TLS; every other port dials in cleartext and
// upgrades with STARTTLS before authenticating.
type SMTPProvider struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPProvider creates the SMTP-backed provider from config.
func NewSMTPProvider(cfg Config) (*SMTPProvider, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("%w: SMTPHost is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &SMTPProvider{
		host:     cfg.SMTPHost,
		port:     port,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SenderEmail,
	}, nil
}

// Name implements Provider.
func (p *SMTPProvider) Name() string { return "smtp" }

// SendEmail implements Provider. SMTP has no message identifier concept, so
// the returned id is always empty on success.
func (p *SMTPProvider) SendEmail(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if err := p.send(ctx, msg); err != nil {
		return "", errors.Join(classifySMTPError(err), ErrSendFailed, err)
	}
	return "", nil
}

func (p *SMTPProvider) send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))
	tlsConfig := &tls.Config{ServerName: p.host}

	var (
		conn net.Conn
		err  error
	)
	if p.port == 465 {
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		var dialer net.Dialer
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	// net/smtp is not context-aware, so the deadline guards the rest of
	// the session.
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}

	client, err := smtp.NewClient(conn, p.host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if p.port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}

	if p.username != "" {
		auth := smtp.PlainAuth("", p.username, p.password, p.host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(p.from); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(p.buildMessage(msg)); err != nil {
		return err
	}
	return w.Close()
}

// buildMessage assembles RFC 5322 headers plus the HTML body. MIME-Version
// and Content-Type are required for clients to render HTML.
func (p *SMTPProvider) buildMessage(msg Message) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\n", p.from) +
			fmt.Sprintf("To: %s\r\n", msg.To) +
			fmt.Sprintf("Subject: %s\r\n", msg.Subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			msg.BodyHTML,
	)
}

// classifySMTPError buckets SMTP reply codes: 5xx replies are permanent
// rejections, 4xx are temporary and worth retrying, and anything without a
// reply code (dial errors, timeouts) stays transient.
func classifySMTPError(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 500 {
		return channel.ErrPermanentProvider
	}
	return channel.ErrTransientProvider
}
