package structs

import "github.com/disgoorg/snowflake/v2"

type PresenceStatus = string

const (
	PresenceStatusOnline  PresenceStatus = "online"
	PresenceStatusIdle    PresenceStatus = "idle"
	PresenceStatusDND     PresenceStatus = "dnd"
	PresenceStatusOffline PresenceStatus = "offline"
)

type ActivityType = int

const (
	ActivityTypePlaying   ActivityType = 0
	ActivityTypeStreaming ActivityType = 1
	ActivityTypeListening ActivityType = 2
	ActivityTypeWatching  ActivityType = 3
	ActivityTypeCustom    ActivityType = 4
)

type ActivityTimestamps struct {
	Start int64 `json:"start,omitempty" mapstructure:"start"`
	End   int64 `json:"end,omitempty" mapstructure:"end"`
}

type Activity struct {
	Type       ActivityType       `json:"type" mapstructure:"type"`
	Name       string             `json:"name" mapstructure:"name"`
	URL        string             `json:"url,omitempty" mapstructure:"url"`
	Timestamps ActivityTimestamps `json:"timestamps,omitempty" mapstructure:"timestamps"`
}

// https://discord.com/developers/docs/events/gateway-events#presence-update
type Presence struct {
	UserID   snowflake.ID   `json:"-"`
	GuildID  snowflake.ID   `json:"guild_id,omitempty"`
	Status   PresenceStatus `json:"status"`
	Activity *Activity      `json:"-"`
}
