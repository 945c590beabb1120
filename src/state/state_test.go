package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hendrywilliam/halcyon/src/structs"
)

func newTestGuild(id snowflake.ID) *structs.Guild {
	return &structs.Guild{
		ID:        id,
		Name:      fmt.Sprintf("guild-%s", id),
		Channels:  make(map[snowflake.ID]*structs.Channel),
		Roles:     make(map[snowflake.ID]*structs.Role),
		Members:   make(map[snowflake.ID]*structs.Member),
		Presences: make(map[snowflake.ID]*structs.Presence),
		Emojis:    make(map[snowflake.ID]*structs.Emoji),
	}
}

func TestPutGuildReplacesByID(t *testing.T) {
	s := NewState()
	first := newTestGuild(1)
	first.Name = "first"
	second := newTestGuild(1)
	second.Name = "second"

	s.PutGuild(first)
	s.PutGuild(second)

	got := s.Guild(1)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Name)
	assert.Equal(t, 1, s.GuildCount())
}

func TestDeleteGuildCascades(t *testing.T) {
	s := NewState()
	guild := newTestGuild(10)
	channel := &structs.Channel{ID: 100, GuildID: 10, Type: structs.ChannelTypeGuildText}
	guild.Channels[channel.ID] = channel
	role := &structs.Role{ID: 200, GuildID: 10}
	guild.Roles[role.ID] = role
	user := &structs.User{ID: 300, Username: "someone"}
	guild.Members[user.ID] = &structs.Member{GuildID: 10, User: user}
	guild.Presences[user.ID] = &structs.Presence{GuildID: 10, UserID: user.ID}
	s.PutGuild(guild)
	s.PutMessage(&structs.Message{ID: 400, ChannelID: 100})

	require.NotNil(t, s.Channel(100))
	require.NotNil(t, s.Message(100, 400))

	s.DeleteGuild(10)

	assert.Nil(t, s.Guild(10))
	assert.Nil(t, s.Channel(100))
	assert.Nil(t, s.Member(10, 300))
	assert.Nil(t, s.Role(10, 200))
	assert.Nil(t, s.Presence(10, 300))
	assert.Nil(t, s.Message(100, 400))
}

func TestPutUserSharesIdentity(t *testing.T) {
	s := NewState()
	original := &structs.User{ID: 1, Username: "before"}
	cached := s.PutUser(original)
	require.Same(t, original, cached)

	update := &structs.User{ID: 1, Username: "after"}
	cached = s.PutUser(update)
	// The cached pointer survives, every holder observes the update.
	assert.Same(t, original, cached)
	assert.Equal(t, "after", original.Username)
}

func TestPutMemberIndexesUserGlobally(t *testing.T) {
	s := NewState()
	s.PutGuild(newTestGuild(1))
	member := &structs.Member{
		GuildID: 1,
		User:    &structs.User{ID: 7, Username: "m"},
	}
	s.PutMember(member)

	assert.NotNil(t, s.User(7))
	assert.Same(t, member, s.Member(1, 7))
}

func TestDeleteRoleClearsMemberReferences(t *testing.T) {
	s := NewState()
	guild := newTestGuild(1)
	s.PutGuild(guild)
	s.PutRole(&structs.Role{ID: 5, GuildID: 1, Name: "mods"})
	s.PutMember(&structs.Member{
		GuildID: 1,
		User:    &structs.User{ID: 9},
		Roles:   []snowflake.ID{5},
	})

	s.DeleteRole(1, 5)

	assert.Nil(t, s.Role(1, 5))
	member := s.Member(1, 9)
	require.NotNil(t, member)
	assert.False(t, member.HasRole(5))
}

func TestMessageWindowEviction(t *testing.T) {
	s := NewState()
	s.MessageCacheLimit = 3
	for i := 1; i <= 5; i++ {
		s.PutMessage(&structs.Message{ID: snowflake.ID(i), ChannelID: 1})
	}
	assert.Nil(t, s.Message(1, 1))
	assert.Nil(t, s.Message(1, 2))
	assert.NotNil(t, s.Message(1, 3))
	assert.NotNil(t, s.Message(1, 5))
}

func TestPutMessageLastWriteWins(t *testing.T) {
	s := NewState()
	s.PutMessage(&structs.Message{ID: 1, ChannelID: 1, Content: "first"})
	s.PutMessage(&structs.Message{ID: 1, ChannelID: 1, Content: "second"})
	got := s.Message(1, 1)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Content)
}

func TestResetDiscardsEverything(t *testing.T) {
	s := NewState()
	s.PutGuild(newTestGuild(1))
	s.PutUser(&structs.User{ID: 2})
	s.PutChannel(&structs.Channel{ID: 3})
	s.Reset()
	assert.Nil(t, s.Guild(1))
	assert.Nil(t, s.User(2))
	assert.Nil(t, s.Channel(3))
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.PutChannel(&structs.Channel{ID: snowflake.ID(i % 10)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.Channel(snowflake.ID(i % 10))
		}
	}()
	wg.Wait()
}
