package structs

import "github.com/disgoorg/snowflake/v2"

type ChannelType = int

const (
	ChannelTypeGuildText     ChannelType = 0
	ChannelTypeDM            ChannelType = 1
	ChannelTypeGuildVoice    ChannelType = 2
	ChannelTypeGroupDM       ChannelType = 3
	ChannelTypeGuildCategory ChannelType = 4
)

type OverwriteType = int

const (
	OverwriteTypeRole   OverwriteType = 0
	OverwriteTypeMember OverwriteType = 1
)

// PermissionOverwrite pairs an allow/deny bitmask with a role or member id.
type PermissionOverwrite struct {
	ID    snowflake.ID  `json:"id"`
	Type  OverwriteType `json:"type"`
	Allow Permission    `json:"allow,string"`
	Deny  Permission    `json:"deny,string"`
}

// https://discord.com/developers/docs/resources/channel
type Channel struct {
	ID                   snowflake.ID          `json:"id"`
	Type                 ChannelType           `json:"type"`
	GuildID              snowflake.ID          `json:"guild_id,omitempty"`
	Name                 string                `json:"name,omitempty"`
	Topic                string                `json:"topic,omitempty"`
	Position             int                   `json:"position,omitempty"`
	NSFW                 bool                  `json:"nsfw,omitempty"`
	PermissionOverwrites []PermissionOverwrite `json:"permission_overwrites,omitempty"`
	// ParentID is a weak reference to a category channel. It is resolved
	// by id lookup on demand and may point at a channel not yet cached.
	ParentID      snowflake.ID `json:"parent_id,omitempty"`
	LastMessageID snowflake.ID `json:"last_message_id,omitempty"`
	Recipients    []*User      `json:"recipients,omitempty"`
}

func (c *Channel) IsDM() bool {
	return c.Type == ChannelTypeDM || c.Type == ChannelTypeGroupDM
}
