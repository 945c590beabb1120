package structs

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// https://discord.com/developers/docs/resources/guild#guild-member-object
type Member struct {
	GuildID  snowflake.ID   `json:"guild_id,omitempty"`
	User     *User          `json:"user"`
	Nick     string         `json:"nick,omitempty"`
	Roles    []snowflake.ID `json:"roles"`
	JoinedAt time.Time      `json:"joined_at"`
	Deaf     bool           `json:"deaf"`
	Mute     bool           `json:"mute"`
}

// DisplayName prefers the guild nickname over the account name.
func (m *Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		return m.User.Username
	}
	return ""
}

// HasRole reports whether the member carries the given role id.
func (m *Member) HasRole(id snowflake.ID) bool {
	for _, r := range m.Roles {
		if r == id {
			return true
		}
	}
	return false
}

// Permissions is the union of the member's role bitmasks within guild.
// The guild owner holds every permission regardless of roles.
func (m *Member) Permissions(guild *Guild) Permission {
	if guild == nil {
		return 0
	}
	if m.User != nil && m.User.ID == guild.OwnerID {
		return PermissionAll
	}
	var perms Permission
	if everyone, ok := guild.Roles[guild.ID]; ok {
		perms |= everyone.Permissions
	}
	for _, id := range m.Roles {
		if role, ok := guild.Roles[id]; ok {
			perms |= role.Permissions
		}
	}
	if perms&PermissionAdministrator != 0 {
		return PermissionAll
	}
	return perms
}
