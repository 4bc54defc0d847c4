package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Advertising channels a movement can be attributed to.
const (
	ChannelFacebook = "facebook"
	ChannelGoogle   = "google"
	ChannelTikTok   = "tiktok"
	ChannelSnapchat = "snapchat"
	ChannelOther    = "other"
)

var knownChannels = map[string]bool{
	ChannelFacebook: true,
	ChannelGoogle:   true,
	ChannelTikTok:   true,
	ChannelSnapchat: true,
	ChannelOther:    true,
}

// NormalizeChannel maps an arbitrary channel string onto the known set,
// falling back to "other".
func NormalizeChannel(channel string) string {
	if knownChannels[channel] {
		return channel
	}
	return ChannelOther
}

// ChannelSet is the set of advertising platforms a card may be charged
// against. An empty set means unrestricted. Stored as a JSON array.
type ChannelSet []string

// Value implements driver.Valuer.
func (s ChannelSet) Value() (driver.Value, error) {
	if s == nil {
		s = ChannelSet{}
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("marshal channel set: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (s *ChannelSet) Scan(value interface{}) error {
	if value == nil {
		*s = ChannelSet{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported channel set type %T", value)
	}
	if len(data) == 0 {
		*s = ChannelSet{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(s))
}

// Contains reports whether the set includes the given channel.
func (s ChannelSet) Contains(channel string) bool {
	for _, c := range s {
		if c == channel {
			return true
		}
	}
	return false
}
