package delivery

import (
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// DetermineChannels returns the channels the notification may be delivered
// over, in the fixed dispatch order (push, email, sms). A channel is included
// iff the notification's type is globally enabled for the user, the channel's
// master switch is on, and the (type, channel) matrix cell is true. A nil
// preference enables every channel.
func DetermineChannels(n notification.Notification, pref *notification.Preference) []channel.Channel {
	selected := make([]channel.Channel, 0, len(notification.Channels))
	for _, ch := range notification.Channels {
		if pref == nil || pref.EnabledFor(n.Type, ch) {
			selected = append(selected, ch)
		}
	}
	return selected
}
