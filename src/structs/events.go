package structs

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type EventName = string
type EventOpcode = int

const (
	EventNameReady               EventName = "READY"
	EventNameResumed             EventName = "RESUMED"
	EventNameGuildCreate         EventName = "GUILD_CREATE"
	EventNameGuildUpdate         EventName = "GUILD_UPDATE"
	EventNameGuildDelete         EventName = "GUILD_DELETE"
	EventNameChannelCreate       EventName = "CHANNEL_CREATE"
	EventNameChannelUpdate       EventName = "CHANNEL_UPDATE"
	EventNameChannelDelete       EventName = "CHANNEL_DELETE"
	EventNameGuildMemberAdd      EventName = "GUILD_MEMBER_ADD"
	EventNameGuildMemberUpdate   EventName = "GUILD_MEMBER_UPDATE"
	EventNameGuildMemberRemove   EventName = "GUILD_MEMBER_REMOVE"
	EventNameGuildRoleCreate     EventName = "GUILD_ROLE_CREATE"
	EventNameGuildRoleUpdate     EventName = "GUILD_ROLE_UPDATE"
	EventNameGuildRoleDelete     EventName = "GUILD_ROLE_DELETE"
	EventNameMessageCreate       EventName = "MESSAGE_CREATE"
	EventNameMessageUpdate       EventName = "MESSAGE_UPDATE"
	EventNameMessageDelete       EventName = "MESSAGE_DELETE"
	EventNameMessageReactionAdd  EventName = "MESSAGE_REACTION_ADD"
	EventNameMessageReactionRem  EventName = "MESSAGE_REACTION_REMOVE"
	EventNamePresenceUpdate      EventName = "PRESENCE_UPDATE"
	EventNameTypingStart         EventName = "TYPING_START"
	EventNameUserUpdate          EventName = "USER_UPDATE"
)

// RawEvent is the inbound envelope. D stays raw to delay decoding until
// the event name is known.
type RawEvent struct {
	Op EventOpcode     `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  uint64          `json:"s,omitempty"`
	T  EventName       `json:"t,omitempty"`
}

func (re *RawEvent) LogValue() slog.Value {
	return slog.GroupValue(slog.Int("op_code", re.Op),
		slog.Uint64("sequence", re.S),
		slog.String("event_name", re.T))
}

// Event is the outbound envelope.
type Event struct {
	Op EventOpcode `json:"op"`
	D  interface{} `json:"d,omitempty"`
	S  uint64      `json:"s,omitempty"`
	T  EventName   `json:"t,omitempty"`
}

func (e *Event) LogValue() slog.Value {
	return slog.GroupValue(slog.Int("op_code", e.Op),
		slog.Any("event_data", e.D),
		slog.Uint64("sequence", e.S),
		slog.String("event_name", e.T))
}

type HelloEvent struct {
	HeartbeatInterval uint64 `json:"heartbeat_interval"`
}

type IdentifyEventProperties struct {
	Os      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type IdentifyEvent struct {
	Token          string                  `json:"token"`
	Properties     IdentifyEventProperties `json:"properties"`
	Compress       bool                    `json:"compress,omitempty"`
	LargeThreshold uint8                   `json:"large_threshold,omitempty"`
	Shard          []uint                  `json:"shard,omitempty"`
	Presence       any                     `json:"presence,omitempty"`
	Intents        uint64                  `json:"intents"`
}

type ResumeEvent struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       uint64 `json:"seq"`
}

type ReadyEvent struct {
	V                int                `json:"v"`
	User             *User              `json:"user"`
	Guilds           []UnavailableGuild `json:"guilds"`
	SessionID        string             `json:"session_id"`
	ResumeGatewayURL string             `json:"resume_gateway_url"`
	Shard            []uint             `json:"shard,omitempty"`
}

func (re *ReadyEvent) LogValue() slog.Value {
	return slog.GroupValue(slog.String("session_id", re.SessionID),
		slog.Int("guild_count", len(re.Guilds)),
		slog.String("resume_gateway_url", re.ResumeGatewayURL))
}

type GuildDeleteEvent struct {
	ID          snowflake.ID `json:"id"`
	Unavailable bool         `json:"unavailable,omitempty"`
}

type GuildMemberRemoveEvent struct {
	GuildID snowflake.ID `json:"guild_id"`
	User    *User        `json:"user"`
}

type GuildRoleEvent struct {
	GuildID snowflake.ID    `json:"guild_id"`
	Role    json.RawMessage `json:"role"`
}

type GuildRoleDeleteEvent struct {
	GuildID snowflake.ID `json:"guild_id"`
	RoleID  snowflake.ID `json:"role_id"`
}

type MessageDeleteEvent struct {
	ID        snowflake.ID `json:"id"`
	ChannelID snowflake.ID `json:"channel_id"`
	GuildID   snowflake.ID `json:"guild_id,omitempty"`
}

type MessageReactionEvent struct {
	UserID    snowflake.ID `json:"user_id"`
	ChannelID snowflake.ID `json:"channel_id"`
	MessageID snowflake.ID `json:"message_id"`
	GuildID   snowflake.ID `json:"guild_id,omitempty"`
	Emoji     Emoji        `json:"emoji"`
}

type TypingStartEvent struct {
	ChannelID snowflake.ID `json:"channel_id"`
	GuildID   snowflake.ID `json:"guild_id,omitempty"`
	UserID    snowflake.ID `json:"user_id"`
	Timestamp int64        `json:"timestamp"`
}

// TypingAt converts the wire unix timestamp.
func (t *TypingStartEvent) TypingAt() time.Time {
	return time.Unix(t.Timestamp, 0)
}
