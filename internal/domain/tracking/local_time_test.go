package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMealLog_BeforeCreateKeepsLocalDay(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	m := &MealLog{EatenAt: time.Date(2026, 3, 4, 23, 30, 0, 0, est)}
	require.NoError(t, m.BeforeCreate(nil))

	require.Equal(t, "2026-03-04", m.LogDate)
	require.Equal(t, -300, m.UTCOffsetMin)
	require.Equal(t, time.UTC, m.EatenAt.Location())

	m.CreatedAt = time.Date(2026, 3, 5, 4, 31, 0, 0, time.UTC)
	local := m.LocalEatenAt()
	require.Equal(t, 23, local.Hour())
	require.Equal(t, 4, local.Day())
}

func TestActivityLog_UTCStaysUTC(t *testing.T) {
	a := &ActivityLog{PerformedAt: time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC)}
	require.NoError(t, a.BeforeCreate(nil))
	require.Equal(t, "2026-03-04", a.LogDate)
	require.Equal(t, 0, a.UTCOffsetMin)

	a.CreatedAt = a.PerformedAt
	require.Equal(t, 23, a.LocalPerformedAt().Hour())
}

func TestContextLog_LogDateUsesLoggedOffset(t *testing.T) {
	c := &ContextLog{LoggedAt: time.Date(2026, 3, 4, 22, 0, 0, 0, time.FixedZone("PST", -8*3600))}
	require.NoError(t, c.BeforeCreate(nil))
	require.Equal(t, "2026-03-04", c.LogDate)
}
