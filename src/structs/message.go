package structs

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type Reaction struct {
	Count int   `json:"count"`
	Me    bool  `json:"me"`
	Emoji Emoji `json:"emoji"`
}

// https://discord.com/developers/docs/resources/message
type Message struct {
	ID        snowflake.ID `json:"id"`
	ChannelID snowflake.ID `json:"channel_id"`
	// Channel is resolved against the cache and stays nil when the
	// channel has not been observed yet.
	Channel *Channel `json:"-"`
	Author  *User    `json:"author"`
	// Member is only resolved when the author belongs to the channel's
	// guild. DM messages never carry one.
	Member          *Member        `json:"member,omitempty"`
	Content         string         `json:"content"`
	Timestamp       time.Time      `json:"timestamp"`
	EditedTimestamp *time.Time     `json:"edited_timestamp,omitempty"`
	TTS             bool           `json:"tts"`
	MentionEveryone bool           `json:"mention_everyone"`
	Mentions        []*User        `json:"mentions,omitempty"`
	MentionRoles    []snowflake.ID `json:"mention_roles,omitempty"`
	Reactions       []Reaction     `json:"reactions,omitempty"`
}

// CreatedAt derives the creation time from the message id.
func (m *Message) CreatedAt() time.Time {
	return m.ID.Time()
}

// MessagePatch carries the fields a MESSAGE_UPDATE may include. Absent
// fields stay nil and leave the cached message untouched.
type MessagePatch struct {
	ID              snowflake.ID    `json:"id"`
	ChannelID       snowflake.ID    `json:"channel_id"`
	Content         *string         `json:"content,omitempty"`
	EditedTimestamp *time.Time      `json:"edited_timestamp,omitempty"`
	Mentions        []*User         `json:"mentions,omitempty"`
	MentionRoles    []snowflake.ID  `json:"mention_roles,omitempty"`
	MentionEveryone *bool           `json:"mention_everyone,omitempty"`
}
