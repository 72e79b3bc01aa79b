package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// DevProvider implements Provider for local development. It writes each
// message as an HTML file plus a JSON metadata file instead of sending it,
// so templates can be inspected in a browser.
type DevProvider struct {
	dir string
}

// NewDevProvider creates a provider that saves messages under dir. The
// directory is created on first send.
func NewDevProvider(dir string) *DevProvider {
	return &DevProvider{dir: dir}
}

// Name implements Provider.
func (d *DevProvider) Name() string { return "dev" }

// devMetadata is the message envelope saved next to the HTML body.
type devMetadata struct {
	MessageID string `json:"message_id"`
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
}

// SendEmail implements Provider. The returned message id is generated
// locally so sender stats and outcomes behave like production.
func (d *DevProvider) SendEmail(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", errors.Join(channel.ErrTransientProvider, ErrSendFailed,
			fmt.Errorf("create directory: %w", err))
	}

	now := time.Now()
	id := uuid.New().String()

	identifier := msg.Tag
	if identifier == "" {
		identifier = msg.Subject
	}
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405"), sanitizeFilename(identifier))

	htmlPath := filepath.Join(d.dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(msg.BodyHTML), 0644); err != nil {
		return "", errors.Join(channel.ErrTransientProvider, ErrSendFailed,
			fmt.Errorf("write HTML file: %w", err))
	}

	meta, err := json.MarshalIndent(devMetadata{
		MessageID: id,
		Timestamp: now.Format(time.RFC3339),
		To:        msg.To,
		Subject:   msg.Subject,
		Tag:       msg.Tag,
	}, "", "  ")
	if err != nil {
		return "", errors.Join(channel.ErrTransientProvider, ErrSendFailed,
			fmt.Errorf("marshal metadata: %w", err))
	}

	jsonPath := filepath.Join(d.dir, base+".json")
	if err := os.WriteFile(jsonPath, meta, 0644); err != nil {
		return "", errors.Join(channel.ErrTransientProvider, ErrSendFailed,
			fmt.Errorf("write JSON file: %w", err))
	}

	return id, nil
}

// sanitizeRegex matches characters that are not alphanumeric, dash, underscore, or dot
var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeFilename converts a string into a safe lowercase filename.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
