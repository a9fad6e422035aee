package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in           string
		hour, minute int
		ok           bool
	}{
		{in: "09:30", hour: 9, minute: 30, ok: true},
		{in: "9:05", hour: 9, minute: 5, ok: true},
		{in: "23:59", hour: 23, minute: 59, ok: true},
		{in: "00:00", ok: true},
		{in: "24:00"},
		{in: "25:61"},
		{in: "12:60"},
		{in: "1230"},
		{in: ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			hour, minute, ok := ParseClock(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.hour, hour)
			assert.Equal(t, tc.minute, minute)
		})
	}
}

func TestScheduledAt(t *testing.T) {
	interview := Interview{Date: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), Time: "14:15"}
	at, ok := interview.ScheduledAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 4, 14, 15, 0, 0, time.UTC), at)

	interview.Time = "bad"
	_, ok = interview.ScheduledAt()
	assert.False(t, ok)

	_, ok = Interview{Time: "10:00"}.ScheduledAt()
	assert.False(t, ok)
}

func TestMarkElapsed(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	past := Interview{Date: day, Time: "11:59", Status: StatusUpcoming}
	require.True(t, past.MarkElapsed(now))
	assert.Equal(t, StatusCompleted, past.Status)
	assert.False(t, past.MarkElapsed(now), "second call must not report a change")

	future := Interview{Date: day, Time: "12:30", Status: StatusUpcoming}
	assert.False(t, future.MarkElapsed(now))
	assert.Equal(t, StatusUpcoming, future.Status)

	for _, status := range []InterviewStatus{StatusOngoing, StatusCancelled, StatusCompleted} {
		interview := Interview{Date: day, Time: "08:00", Status: status}
		assert.False(t, interview.MarkElapsed(now))
		assert.Equal(t, status, interview.Status)
	}
}

func TestAccountHasRole(t *testing.T) {
	account := Account{Role: RoleInterviewer}
	assert.True(t, account.HasRole(RoleInterviewer, RoleAdmin))
	assert.False(t, account.HasRole(RoleAdmin))
	assert.False(t, account.HasRole())
}
