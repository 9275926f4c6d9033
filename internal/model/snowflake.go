package model

import "time"

// DiscordEpoch is the first millisecond of 2015 in Unix milliseconds.
// Snowflake timestamps are counted from it.
const DiscordEpoch int64 = 1420070400000

// snowflakeTimestampShift is the number of low bits holding the worker,
// process and increment counters.
const snowflakeTimestampShift = 22

// SnowflakeTime returns the creation time encoded in a snowflake ID.
func SnowflakeTime(id int64) time.Time {
	ms := (id >> snowflakeTimestampShift) + DiscordEpoch
	return time.UnixMilli(ms).UTC()
}
