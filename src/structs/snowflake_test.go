package structs

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeconstructSnowflake(t *testing.T) {
	// Documented reference id.
	id := snowflake.ID(175928847299117063)
	d := DeconstructSnowflake(id)
	assert.Equal(t, int64(1462015105796), d.Timestamp.UnixMilli())
	assert.Equal(t, uint8(1), d.WorkerID)
	assert.Equal(t, uint8(0), d.ProcessID)
	assert.Equal(t, uint16(7), d.Increment)
}

func TestDeconstructSnowflakeIsPure(t *testing.T) {
	id := snowflake.ID(175928847299117063)
	first := DeconstructSnowflake(id)
	second := DeconstructSnowflake(id)
	require.Equal(t, first, second)
}

func TestDeconstructSnowflakeMonotonic(t *testing.T) {
	base := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	var prev time.Time
	for i := 0; i < 10; i++ {
		id := snowflake.New(base.Add(time.Duration(i) * time.Second))
		d := DeconstructSnowflake(id)
		if i > 0 {
			assert.False(t, d.Timestamp.Before(prev),
				"timestamps must be non-decreasing for increasing ids")
		}
		prev = d.Timestamp
	}
}

func TestUserTag(t *testing.T) {
	u := &User{Username: "wumpus", Discriminator: "0001"}
	assert.Equal(t, "wumpus#0001", u.Tag())
	u.Discriminator = "0"
	assert.Equal(t, "wumpus", u.Tag())
}
