package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday afternoon.
var wednesday = time.Date(2024, time.May, 15, 14, 37, 12, 0, time.UTC)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		now       time.Time
		wantStart string
		wantEnd   string
	}{
		{"today", KindToday, wednesday, "2024-05-15 00:00:00", "2024-05-15 23:59:59"},
		{"yesterday", KindYesterday, wednesday, "2024-05-14 00:00:00", "2024-05-14 23:59:59"},
		{"yesterday across month", KindYesterday, time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC), "2024-02-29 00:00:00", "2024-02-29 23:59:59"},
		{"this week from wednesday", KindThisWeek, wednesday, "2024-05-13 00:00:00", "2024-05-19 23:59:59"},
		{"this week from sunday", KindThisWeek, time.Date(2024, time.May, 19, 23, 0, 0, 0, time.UTC), "2024-05-13 00:00:00", "2024-05-19 23:59:59"},
		{"this week from monday", KindThisWeek, time.Date(2024, time.May, 13, 0, 0, 0, 0, time.UTC), "2024-05-13 00:00:00", "2024-05-19 23:59:59"},
		{"last week", KindLastWeek, wednesday, "2024-05-06 00:00:00", "2024-05-12 23:59:59"},
		{"this month", KindThisMonth, wednesday, "2024-05-01 00:00:00", "2024-05-31 23:59:59"},
		{"this month february leap", KindThisMonth, time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC), "2024-02-01 00:00:00", "2024-02-29 23:59:59"},
		{"last month", KindLastMonth, wednesday, "2024-04-01 00:00:00", "2024-04-30 23:59:59"},
		{"last month from january", KindLastMonth, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), "2023-12-01 00:00:00", "2023-12-31 23:59:59"},
		{"this year", KindThisYear, wednesday, "2024-01-01 00:00:00", "2024-12-31 23:59:59"},
		{"last year", KindLastYear, wednesday, "2023-01-01 00:00:00", "2023-12-31 23:59:59"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.kind, tt.now, nil)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantStart, got.StartDate)
			assert.Equal(t, tt.wantEnd, got.EndDate)
		})
	}
}

func TestResolveTodayIgnoresTimeOfDay(t *testing.T) {
	for _, hour := range []int{0, 6, 12, 23} {
		now := time.Date(2024, time.May, 15, hour, 59, 59, 999, time.UTC)
		got := Resolve(KindToday, now, nil)
		require.NotNil(t, got)
		assert.Equal(t, "2024-05-15 00:00:00", got.StartDate)
		assert.Equal(t, "2024-05-15 23:59:59", got.EndDate)
	}
}

func TestResolveUsesLocationOfNow(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	// 2024-05-15 20:00 UTC is already the 16th in Jakarta.
	now := time.Date(2024, time.May, 15, 20, 0, 0, 0, time.UTC).In(jakarta)

	got := Resolve(KindToday, now, nil)
	require.NotNil(t, got)
	assert.Equal(t, "2024-05-16 00:00:00", got.StartDate)
}

func TestResolveCustomUsesDatesVerbatim(t *testing.T) {
	got := Resolve(KindCustom, wednesday, &Custom{Start: "2024-01-10", End: "2024-01-15"})
	require.NotNil(t, got)
	assert.Equal(t, "2024-01-10 00:00:00", got.StartDate)
	assert.Equal(t, "2024-01-15 23:59:59", got.EndDate)
}

func TestResolveFailsOpen(t *testing.T) {
	assert.Nil(t, Resolve(KindNone, wednesday, nil))
	assert.Nil(t, Resolve(Kind("fortnight"), wednesday, nil))
	assert.Nil(t, Resolve(KindCustom, wednesday, nil))
	assert.Nil(t, Resolve(KindCustom, wednesday, &Custom{Start: "2024-01-10"}))
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindThisMonth, ParseKind(" This-Month "))
	assert.Equal(t, KindNone, ParseKind(""))
	assert.True(t, ParseKind("last_year").Valid())
	assert.False(t, ParseKind("fortnight").Valid())
}

func TestSpecActive(t *testing.T) {
	var nilSpec *Spec
	assert.False(t, nilSpec.Active())
	assert.False(t, (&Spec{Kind: KindNone}).Active())
	assert.True(t, (&Spec{Kind: KindToday}).Active())
	assert.Nil(t, nilSpec.Resolve(wednesday))
}
