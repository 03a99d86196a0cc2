// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package comb_test

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/deep-rent/comb/clock"
	"github.com/deep-rent/comb/comb"
	"github.com/deep-rent/comb/guid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture returns a recognizable random value for encoding tests.
func fixture() guid.GUID {
	var g guid.GUID
	for i := range g {
		g[i] = byte(0xA0 + i)
	}
	return g
}

// day reads the big-endian day counter from bytes 10-11.
func day(g guid.GUID) uint16 {
	return binary.BigEndian.Uint16(g[10:12])
}

// ticks reads the big-endian tick counter from bytes 12-15.
func ticks(g guid.GUID) uint32 {
	return binary.BigEndian.Uint32(g[12:16])
}

func TestEncode_Deterministic(t *testing.T) {
	r := fixture()
	at := time.Date(2024, time.June, 15, 8, 30, 45, 123_000_000, time.UTC)

	assert.Equal(t, comb.Encode(r, at), comb.Encode(r, at))
}

func TestEncode_PrefixPreserved(t *testing.T) {
	at := time.Date(2024, time.June, 15, 8, 30, 45, 0, time.UTC)

	for range 100 {
		r := guid.NewRandom()
		id := comb.Encode(r, at)
		assert.Equal(t, r[:10], id[:10])
	}
}

func TestEncode_KnownInstant(t *testing.T) {
	// Midnight of 2024-01-01 lies 45290 whole days after the 1900-01-01
	// epoch, with zero ticks into the day.
	r := fixture()
	id := comb.Encode(r, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, uint16(45290), day(id))
	assert.Equal(t, uint32(0), ticks(id))
}

func TestEncode_TicksOfDay(t *testing.T) {
	r := fixture()

	tests := []struct {
		name string
		at   time.Time
		want uint32
	}{
		{
			name: "midnight",
			at:   time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
			want: 0,
		},
		{
			name: "first millisecond",
			at:   time.Date(2024, time.June, 15, 0, 0, 0, 1_000_000, time.UTC),
			want: 0, // 1 / 3.333333 truncates to zero
		},
		{
			name: "noon",
			at:   time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC),
			want: 12_960_001, // 43,200,000 ms / 3.333333
		},
		{
			name: "last millisecond",
			at:   time.Date(2024, time.June, 15, 23, 59, 59, 999_000_000, time.UTC),
			want: 25_920_002, // 86,399,999 ms / 3.333333
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ticks(comb.Encode(r, tc.at)))
		})
	}
}

func TestEncode_IntraDayMonotonic(t *testing.T) {
	r := fixture()
	midnight := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	prev := ticks(comb.Encode(r, midnight))
	for at := midnight.Add(time.Second); at.Day() == 15; at = at.Add(17 * time.Minute) {
		curr := ticks(comb.Encode(r, at))
		assert.Greater(t, curr, prev, "ticks must increase within a day (at %s)", at)
		prev = curr
	}
}

func TestEncode_AdjacentMilliseconds(t *testing.T) {
	// Instants one millisecond apart map to identical or adjacent tick
	// values, never decreasing ones.
	r := fixture()
	midnight := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	prev := ticks(comb.Encode(r, midnight))
	for ms := int64(1); ms <= 10_000; ms++ {
		curr := ticks(comb.Encode(r, midnight.Add(time.Duration(ms)*time.Millisecond)))
		require.GreaterOrEqual(t, curr, prev, "ticks must not decrease (ms %d)", ms)
		require.LessOrEqual(t, curr-prev, uint32(1), "ticks must not skip (ms %d)", ms)
		prev = curr
	}
}

func TestEncode_InterDayMonotonic(t *testing.T) {
	r := fixture()

	t1 := time.Date(2024, time.March, 10, 23, 59, 59, 999_000_000, time.UTC)
	t2 := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

	id1 := comb.Encode(r, t1)
	id2 := comb.Encode(r, t2)

	assert.Equal(t, day(id1)+1, day(id2))
	assert.Equal(t, uint32(0), ticks(id2))

	// The trailing 6 bytes compare greater across the midnight boundary
	// even though the tick counter resets.
	assert.Positive(t, bytes.Compare(id2[10:], id1[10:]))
}

func TestEncode_TimezoneIndependent(t *testing.T) {
	r := fixture()
	utc := time.Date(2024, time.June, 15, 22, 30, 0, 0, time.UTC)
	east := utc.In(time.FixedZone("UTC+3", 3*60*60)) // 01:30 next day, local

	assert.Equal(t, comb.Encode(r, utc), comb.Encode(r, east))
}

func TestEncode_DayWraparound(t *testing.T) {
	// The 16-bit day field wraps silently 65536 days past the epoch.
	// Ordering breaks at that point; uniqueness does not.
	r := fixture()

	assert.Equal(t, uint16(0), day(comb.Encode(r, comb.Epoch.AddDate(0, 0, 65_536))))
	assert.Equal(t, uint16(4_464), day(comb.Encode(r, comb.Epoch.AddDate(0, 0, 70_000))))
}

func TestGenerator_Defaults(t *testing.T) {
	id := comb.New()
	now := time.Now().UTC()

	assert.Equal(t, uint16(dayNumber(now)), day(id))
	assert.False(t, id.IsNil())
}

// dayNumber mirrors the encoding's day arithmetic for comparison against
// freshly generated identifiers.
func dayNumber(t time.Time) int64 {
	return (t.Unix() - comb.Epoch.Unix()) / (24 * 60 * 60)
}

func TestGenerator_FrozenClock(t *testing.T) {
	at := time.Date(2024, time.June, 15, 8, 30, 45, 0, time.UTC)
	r := fixture()

	g := comb.NewGenerator(
		comb.WithRandom(func() guid.GUID { return r }),
		comb.WithClock(clock.Frozen(at)),
	)

	assert.Equal(t, comb.Encode(r, at), g.New())
	assert.Equal(t, g.New(), g.New())
}

func TestGenerator_SteppingClock(t *testing.T) {
	// Steps of 10ms are coarser than the 1/300s tick resolution, so each
	// identifier must sort strictly greater than the previous one in its
	// trailing 6 bytes.
	start := time.Date(2024, time.June, 15, 8, 0, 0, 0, time.UTC)
	g := comb.NewGenerator(comb.WithClock(clock.Stepping(start, 10*time.Millisecond)))

	prev := g.New()
	for range 1000 {
		curr := g.New()
		require.Positive(t, bytes.Compare(curr[10:], prev[10:]))
		prev = curr
	}
}

func TestGenerator_Concurrency(t *testing.T) {
	var wg sync.WaitGroup
	count := 100
	routines := 50

	g := comb.NewGenerator()
	ids := make(chan guid.GUID, count*routines)

	wg.Add(routines)
	for range routines {
		go func() {
			defer wg.Done()
			for range count {
				ids <- g.New()
			}
		}()
	}

	wg.Wait()
	close(ids)

	seen := make(map[guid.GUID]bool)
	for id := range ids {
		assert.False(t, seen[id], "Duplicate identifier generated: %s", id)
		seen[id] = true
	}
}

func BenchmarkEncode(b *testing.B) {
	r := fixture()
	at := time.Now()

	for b.Loop() {
		_ = comb.Encode(r, at)
	}
}

func BenchmarkNew(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = comb.New()
		}
	})
}
