package model

import (
	"testing"
	"time"
)

// TestSnowflakeTime tests decoding of snowflake creation times.
func TestSnowflakeTime(t *testing.T) {
	t.Parallel()

	t.Run("zero id is the epoch", func(t *testing.T) {
		t.Parallel()
		want := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
		if got := SnowflakeTime(0); !got.Equal(want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("decodes a known id", func(t *testing.T) {
		t.Parallel()
		// 175928847299117063 is the example snowflake from the Discord API docs.
		want := time.Date(2016, time.April, 30, 11, 18, 25, 796000000, time.UTC)
		if got := SnowflakeTime(175928847299117063); !got.Equal(want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("guild CreatedAt uses the id", func(t *testing.T) {
		t.Parallel()
		g := Guild{ID: 175928847299117063}
		if got := g.CreatedAt(); got.Year() != 2016 {
			t.Errorf("expected 2016, got %d", got.Year())
		}
	})

	t.Run("low bits do not change the time", func(t *testing.T) {
		t.Parallel()
		const id = 175928847299117063
		if !SnowflakeTime(id).Equal(SnowflakeTime(id | (1<<snowflakeTimestampShift - 1))) {
			t.Error("expected worker, process and increment bits to be ignored")
		}
	})
}
