package delivery

import (
	"fmt"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// FinalStatus folds per-channel outcomes into the notification's final
// status, the aggregated error message, and the delivery-info patch.
//
// Every channel accepted -> sent. Some accepted -> sent, with the patch
// carrying partial=true. None accepted -> failed, with an error message
// naming each channel's cause. An empty outcome set means nothing was even
// attempted, which is a failure too.
func FinalStatus(outcomes []channel.Outcome) (notification.Status, string, map[string]any) {
	if len(outcomes) == 0 {
		return notification.StatusFailed, "no delivery channels enabled", map[string]any{
			"channel_statuses": map[string]string{},
		}
	}

	statuses := make(map[string]string, len(outcomes))
	details := make(map[string]any, len(outcomes))
	succeeded := 0

	for _, out := range outcomes {
		name := out.Channel.String()
		statuses[name] = channelStatus(out)
		details[name] = outcomeDetail(out)
		if out.Success {
			succeeded++
		}
	}

	patch := map[string]any{
		"channel_statuses": statuses,
		"channels":         details,
	}

	switch {
	case succeeded == len(outcomes):
		return notification.StatusSent, "", patch
	case succeeded > 0:
		patch["partial"] = true
		return notification.StatusSent, "", patch
	default:
		return notification.StatusFailed, aggregateErrors(outcomes), patch
	}
}

// channelStatus maps one outcome onto the channel_statuses value. Rate
// limiting and timeouts keep their own labels so a deliberate admission
// denial is never misread as a provider failure.
func channelStatus(out channel.Outcome) string {
	switch {
	case out.Success:
		return "sent"
	case out.Classification == channel.ClassRateLimited:
		return "rate_limited"
	case out.Classification == channel.ClassTimeout:
		return "timeout"
	default:
		return "failed"
	}
}

func outcomeDetail(out channel.Outcome) map[string]any {
	detail := map[string]any{
		"success":        out.Success,
		"classification": string(out.Classification),
		"attempts":       out.Attempts,
		"duration_ms":    out.Duration.Milliseconds(),
		"timestamp":      out.Timestamp,
	}
	if out.ProviderMessageID != "" {
		detail["provider_message_id"] = out.ProviderMessageID
	}
	if out.Err != nil {
		detail["error"] = out.Err.Error()
	}
	if out.Partial {
		detail["partial"] = true
	}
	return detail
}

func aggregateErrors(outcomes []channel.Outcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, out := range outcomes {
		cause := out.ErrorMessage()
		if cause == "" {
			cause = string(out.Classification)
		}
		parts = append(parts, fmt.Sprintf("%s: %s", out.Channel, cause))
	}
	return "all channels failed: " + strings.Join(parts, "; ")
}
