package structs

import "github.com/disgoorg/snowflake/v2"

type Permission = uint64

const (
	PermissionCreateInstantInvite Permission = 1 << 0
	PermissionKickMembers         Permission = 1 << 1
	PermissionBanMembers          Permission = 1 << 2
	PermissionAdministrator       Permission = 1 << 3
	PermissionManageChannels      Permission = 1 << 4
	PermissionManageGuild         Permission = 1 << 5
	PermissionAddReactions        Permission = 1 << 6
	PermissionViewAuditLog        Permission = 1 << 7
	PermissionViewChannel         Permission = 1 << 10
	PermissionSendMessages        Permission = 1 << 11
	PermissionManageMessages      Permission = 1 << 13
	PermissionMentionEveryone     Permission = 1 << 17
	PermissionManageRoles         Permission = 1 << 28

	PermissionAll Permission = ^Permission(0)
)

// https://discord.com/developers/docs/topics/permissions#role-object
type Role struct {
	ID          snowflake.ID `json:"id"`
	GuildID     snowflake.ID `json:"guild_id,omitempty"`
	Name        string       `json:"name"`
	Color       int          `json:"color"`
	Hoist       bool         `json:"hoist"`
	Position    int          `json:"position"`
	Permissions Permission   `json:"permissions,string"`
	// Managed roles belong to an integration and reject direct mutation.
	Managed     bool `json:"managed"`
	Mentionable bool `json:"mentionable"`
}
