package structs

import "github.com/disgoorg/snowflake/v2"

type VerificationLevel = int

const (
	VerificationLevelNone     VerificationLevel = 0
	VerificationLevelLow      VerificationLevel = 1
	VerificationLevelMedium   VerificationLevel = 2
	VerificationLevelHigh     VerificationLevel = 3
	VerificationLevelVeryHigh VerificationLevel = 4
)

// Guild is the consistency boundary for everything guild-scoped: its
// collections only hold entities whose GuildID matches. Members and
// presences are keyed by user id, channels and roles by their own id.
// https://discord.com/developers/docs/resources/guild
type Guild struct {
	ID                snowflake.ID      `json:"id"`
	Name              string            `json:"name"`
	Icon              string            `json:"icon,omitempty"`
	OwnerID           snowflake.ID      `json:"owner_id"`
	AFKTimeout        int               `json:"afk_timeout,omitempty"`
	VerificationLevel VerificationLevel `json:"verification_level"`
	Large             bool              `json:"large,omitempty"`
	Unavailable       bool              `json:"unavailable,omitempty"`
	MemberCount       int               `json:"member_count,omitempty"`

	Channels  map[snowflake.ID]*Channel  `json:"-"`
	Roles     map[snowflake.ID]*Role     `json:"-"`
	Members   map[snowflake.ID]*Member   `json:"-"`
	Presences map[snowflake.ID]*Presence `json:"-"`
	Emojis    map[snowflake.ID]*Emoji    `json:"-"`
}

// UnavailableGuild is the stub listed in a READY payload. The full guild
// arrives later as its own GUILD_CREATE dispatch.
type UnavailableGuild struct {
	ID          snowflake.ID `json:"id"`
	Unavailable bool         `json:"unavailable"`
}
