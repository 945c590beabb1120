package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hendrywilliam/halcyon/src/structs"
)

const guildCreatePayload = `{
	"id": "41771983423143937",
	"name": "test guild",
	"owner_id": "80351110224678912",
	"verification_level": 2,
	"roles": [
		{"id": "41771983423143937", "name": "@everyone", "permissions": "104324673", "position": 0},
		{"id": "41771983423143999", "name": "mods", "permissions": "268435456", "position": 1, "managed": true}
	],
	"channels": [
		{"id": "127946768842309632", "type": 4, "name": "general-category", "position": 0},
		{"id": "127946768842309633", "type": 0, "name": "general", "position": 1, "parent_id": "127946768842309632"},
		{"id": "127946768842309634", "type": 0, "name": "orphan", "position": 2, "parent_id": "999999999999999999"}
	],
	"members": [
		{"user": {"id": "80351110224678912", "username": "owner", "discriminator": "0001"}, "roles": ["41771983423143999"], "joined_at": "2017-01-01T00:00:00Z"},
		{"user": {"id": "80351110224678913", "username": "pleb", "discriminator": "0002"}, "roles": ["41771983423143999", "555"], "joined_at": "2018-06-01T00:00:00Z"}
	],
	"presences": [
		{"user": {"id": "80351110224678912"}, "status": "online", "activities": [{"type": 0, "name": "halcyon"}]}
	]
}`

func TestBuildGuild(t *testing.T) {
	guild, err := BuildGuild(json.RawMessage(guildCreatePayload))
	require.NoError(t, err)
	assert.Equal(t, "test guild", guild.Name)
	assert.Len(t, guild.Channels, 3)
	assert.Len(t, guild.Roles, 2)
	assert.Len(t, guild.Members, 2)
	assert.Len(t, guild.Presences, 1)

	// Nested entities declare membership in the owning guild.
	for _, ch := range guild.Channels {
		assert.Equal(t, guild.ID, ch.GuildID)
	}
	for _, role := range guild.Roles {
		assert.Equal(t, guild.ID, role.GuildID)
	}
	for _, member := range guild.Members {
		assert.Equal(t, guild.ID, member.GuildID)
	}
}

func TestBuildGuildMemberRoleResolution(t *testing.T) {
	guild, err := BuildGuild(json.RawMessage(guildCreatePayload))
	require.NoError(t, err)

	member := guild.Members[80351110224678913]
	require.NotNil(t, member)
	// Role 555 is a forward reference to a role never observed; it is
	// simply absent from the permission union.
	perms := member.Permissions(guild)
	assert.NotZero(t, perms&structs.Permission(268435456))

	owner := guild.Members[80351110224678912]
	require.NotNil(t, owner)
	assert.Equal(t, structs.PermissionAll, owner.Permissions(guild))
}

func TestBuildMessageWithUnknownChannel(t *testing.T) {
	s := NewState()
	payload := `{
		"id": "334344334344334344",
		"channel_id": "123123123123123123",
		"author": {"id": "1", "username": "a", "discriminator": "0001"},
		"content": "hello"
	}`
	message, err := BuildMessage(json.RawMessage(payload), s)
	require.NoError(t, err)
	assert.Nil(t, message.Channel)
	assert.Nil(t, message.Member)
	assert.Equal(t, "hello", message.Content)
}

func TestBuildMessageResolvesMember(t *testing.T) {
	s := NewState()
	guild, err := BuildGuild(json.RawMessage(guildCreatePayload))
	require.NoError(t, err)
	s.PutGuild(guild)

	payload := `{
		"id": "334344334344334344",
		"channel_id": "127946768842309633",
		"author": {"id": "80351110224678912", "username": "owner", "discriminator": "0001"},
		"content": "hi"
	}`
	message, err := BuildMessage(json.RawMessage(payload), s)
	require.NoError(t, err)
	require.NotNil(t, message.Channel)
	assert.Equal(t, guild.ID, message.Channel.GuildID)
	require.NotNil(t, message.Member)
	assert.Equal(t, "owner", message.Member.User.Username)
	// The member carries the cached user, the author stays the
	// payload's own value until stored.
	assert.Same(t, s.User(80351110224678912), message.Member.User)
	assert.Equal(t, message.Member.User.ID, message.Author.ID)
}

func TestBuildMessageLeavesCachedUserAlone(t *testing.T) {
	s := NewState()
	s.PutChannel(&structs.Channel{ID: 55, Type: structs.ChannelTypeDM})
	cached := s.PutUser(&structs.User{ID: 9, Username: "before"})
	payload := `{
		"id": "334344334344334344",
		"channel_id": "55",
		"author": {"id": "9", "username": "after", "discriminator": "0001"},
		"content": "hi"
	}`
	message, err := BuildMessage(json.RawMessage(payload), s)
	require.NoError(t, err)
	// Building is a pure read, the store only changes through its
	// own write operations.
	assert.Equal(t, "before", cached.Username)
	assert.NotSame(t, cached, message.Author)
	assert.Equal(t, "after", message.Author.Username)
}

func TestBuildMessageDMHasNoMember(t *testing.T) {
	s := NewState()
	s.PutChannel(&structs.Channel{ID: 55, Type: structs.ChannelTypeDM})
	payload := `{
		"id": "334344334344334344",
		"channel_id": "55",
		"author": {"id": "9", "username": "friend", "discriminator": "0001"},
		"content": "psst"
	}`
	message, err := BuildMessage(json.RawMessage(payload), s)
	require.NoError(t, err)
	require.NotNil(t, message.Channel)
	assert.Nil(t, message.Member)
}

func TestApplyMessagePatch(t *testing.T) {
	message := &structs.Message{ID: 1, ChannelID: 2, Content: "old", TTS: true}
	content := "new"
	var patch structs.MessagePatch
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","channel_id":"2","content":"new","edited_timestamp":"2021-05-05T12:00:00Z"}`), &patch))
	require.NotNil(t, patch.Content)
	assert.Equal(t, content, *patch.Content)

	ApplyMessagePatch(message, &patch)
	assert.Equal(t, "new", message.Content)
	require.NotNil(t, message.EditedTimestamp)
	// Fields absent from the patch stay put.
	assert.True(t, message.TTS)
}

func TestBuildPresenceWeakActivityDecode(t *testing.T) {
	payload := `{
		"user": {"id": "42"},
		"guild_id": "1",
		"status": "idle",
		"activities": [{"type": "0", "name": "chess", "timestamps": {"start": "1609459200000"}}]
	}`
	presence, err := BuildPresence(json.RawMessage(payload), 0)
	require.NoError(t, err)
	assert.Equal(t, structs.PresenceStatusIdle, presence.Status)
	require.NotNil(t, presence.Activity)
	assert.Equal(t, "chess", presence.Activity.Name)
	assert.Equal(t, int64(1609459200000), presence.Activity.Timestamps.Start)
}

func TestBuildPresenceMalformedActivity(t *testing.T) {
	payload := `{
		"user": {"id": "42"},
		"status": "dnd",
		"activities": [{"type": {"nested": true}, "name": ["not", "a", "string"]}]
	}`
	presence, err := BuildPresence(json.RawMessage(payload), 7)
	require.NoError(t, err)
	assert.Equal(t, structs.PresenceStatusDND, presence.Status)
	assert.Nil(t, presence.Activity)
	assert.Equal(t, "7", presence.GuildID.String())
}

func TestBuildGuildToleratesMalformedMember(t *testing.T) {
	payload := `{
		"id": "1",
		"name": "g",
		"members": [
			{"user": {"id": "2", "username": "fine"}},
			{"user": "garbage"}
		]
	}`
	guild, err := BuildGuild(json.RawMessage(payload))
	require.NoError(t, err)
	assert.Len(t, guild.Members, 1)
}
