package notification

// Preference holds a user's delivery preferences: per-type global switches,
// per-channel master switches, and the type/channel matrix consulted during
// channel selection. A nil *Preference means no preferences are stored and
// every channel is enabled for every type.
type Preference struct {
	UserID string `json:"user_id"`

	TransactionAlerts      bool `json:"transaction_alerts"`
	SecurityAlerts         bool `json:"security_alerts"`
	MiningUpdates          bool `json:"mining_updates"`
	MarketingNotifications bool `json:"marketing_notifications"`
	SystemUpdates          bool `json:"system_updates"`

	PreferredChannel   Channel                  `json:"preferred_channel"`
	ChannelPreferences map[Channel]bool         `json:"channel_preferences"`
	TypeChannelMatrix  map[Type]map[Channel]bool `json:"type_channel_matrix"`
}

// NewPreference returns the default preference set for a user: marketing
// disabled, SMS reserved for transactional and security traffic, push
// preferred.
func NewPreference(userID string) *Preference {
	return &Preference{
		UserID:                 userID,
		TransactionAlerts:      true,
		SecurityAlerts:         true,
		MiningUpdates:          true,
		MarketingNotifications: false,
		SystemUpdates:          true,
		PreferredChannel:       ChannelPush,
		ChannelPreferences: map[Channel]bool{
			ChannelPush:  true,
			ChannelEmail: true,
			ChannelSMS:   false,
		},
		TypeChannelMatrix: map[Type]map[Channel]bool{
			TypeTransactionAlert: {ChannelPush: true, ChannelEmail: true, ChannelSMS: true},
			TypeSecurityAlert:    {ChannelPush: true, ChannelEmail: true, ChannelSMS: true},
			TypeMiningUpdate:     {ChannelPush: true, ChannelEmail: false, ChannelSMS: false},
			TypeMarketing:        {ChannelPush: false, ChannelEmail: true, ChannelSMS: false},
			TypeSystemUpdate:     {ChannelPush: true, ChannelEmail: true, ChannelSMS: false},
		},
	}
}

// Clone returns a deep copy, so stored preferences can be handed out
// without aliasing the maps.
func (p *Preference) Clone() *Preference {
	if p == nil {
		return nil
	}
	c := *p
	if p.ChannelPreferences != nil {
		c.ChannelPreferences = make(map[Channel]bool, len(p.ChannelPreferences))
		for k, v := range p.ChannelPreferences {
			c.ChannelPreferences[k] = v
		}
	}
	if p.TypeChannelMatrix != nil {
		c.TypeChannelMatrix = make(map[Type]map[Channel]bool, len(p.TypeChannelMatrix))
		for t, row := range p.TypeChannelMatrix {
			cp := make(map[Channel]bool, len(row))
			for ch, v := range row {
				cp[ch] = v
			}
			c.TypeChannelMatrix[t] = cp
		}
	}
	return &c
}

// TypeEnabled reports whether the given notification type is globally
// enabled for this user.
func (p *Preference) TypeEnabled(t Type) bool {
	switch t {
	case TypeTransactionAlert:
		return p.TransactionAlerts
	case TypeSecurityAlert:
		return p.SecurityAlerts
	case TypeMiningUpdate:
		return p.MiningUpdates
	case TypeMarketing:
		return p.MarketingNotifications
	case TypeSystemUpdate:
		return p.SystemUpdates
	}
	return false
}

// EnabledFor reports whether notifications of type t may be delivered over
// channel ch: the type must be globally enabled, the channel's master switch
// must be on, and the matrix cell must be true. Missing matrix entries are
// treated as disabled.
func (p *Preference) EnabledFor(t Type, ch Channel) bool {
	if !p.TypeEnabled(t) {
		return false
	}
	if !p.ChannelPreferences[ch] {
		return false
	}
	row, ok := p.TypeChannelMatrix[t]
	if !ok {
		return false
	}
	return row[ch]
}
