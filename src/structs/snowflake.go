package structs

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// DeconstructedSnowflake is the decoded form of a platform id.
// https://discord.com/developers/docs/reference#snowflakes
type DeconstructedSnowflake struct {
	Timestamp time.Time
	WorkerID  uint8
	ProcessID uint8
	Increment uint16
}

// DeconstructSnowflake splits an id into its timestamp, worker,
// process and increment parts.
func DeconstructSnowflake(id snowflake.ID) DeconstructedSnowflake {
	raw := uint64(id)
	return DeconstructedSnowflake{
		Timestamp: id.Time(),
		WorkerID:  uint8((raw & 0x3E0000) >> 17),
		ProcessID: uint8((raw & 0x1F000) >> 12),
		Increment: uint16(raw & 0xFFF),
	}
}
