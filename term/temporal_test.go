package term

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDateTimeRoundTrip(t *testing.T) {
	dt, err := ParseDateTime("2024-03-05T10:15:30Z")
	require.NoError(t, err)
	require.Equal(t, 2024, dt.Year)
	require.Equal(t, 3, dt.Month)
	require.Equal(t, 5, dt.Day)
	require.Equal(t, "2024-03-05T10:15:30Z", dt.String())
}

func TestParseDateTimeWithOffset(t *testing.T) {
	dt, err := ParseDateTime("2024-03-05T10:15:30+02:00")
	require.NoError(t, err)
	require.True(t, dt.HasTZ)
	require.Equal(t, 120, dt.TZOffsetMinutes)
	require.Equal(t, "2024-03-05T10:15:30+02:00", dt.String())
}

func TestParseDateTimeFractionalSeconds(t *testing.T) {
	dt, err := ParseDateTime("2024-03-05T10:15:30.25Z")
	require.NoError(t, err)
	require.Equal(t, 250000000, dt.Nanos)
}

func TestParseDurationRoundTrip(t *testing.T) {
	d, err := ParseDuration("P1Y2M3DT4H5M6S")
	require.NoError(t, err)
	require.Equal(t, 14, d.Months)
	require.Equal(t, 3, d.Days)
	require.Equal(t, 4*3600+5*60+6, d.Seconds)
	require.Equal(t, "P1Y2M3DT4H5M6S", d.String())
}

func TestParseNegativeDuration(t *testing.T) {
	d, err := ParseDuration("-P1D")
	require.NoError(t, err)
	require.True(t, d.Negative)
	require.Equal(t, "-P1D", d.String())
}

func TestAddDurationMonthClamping(t *testing.T) {
	dt, err := ParseDate("2024-01-31")
	require.NoError(t, err)
	dur, err := ParseDuration("P1M")
	require.NoError(t, err)
	out := dt.AddDuration(dur)
	require.Equal(t, 2024, out.Year)
	require.Equal(t, 2, out.Month)
	require.Equal(t, 29, out.Day) // 2024 is a leap year, Feb has 29 days
}

func TestAddDurationDayTimeCarry(t *testing.T) {
	dt, err := ParseDateTime("2024-01-01T23:00:00Z")
	require.NoError(t, err)
	dur, err := ParseDuration("PT2H")
	require.NoError(t, err)
	out := dt.AddDuration(dur)
	require.Equal(t, 2, out.Day)
	require.Equal(t, 1, out.Hour)
}

func TestDateTimeSub(t *testing.T) {
	a, _ := ParseDateTime("2024-01-02T00:00:00Z")
	b, _ := ParseDateTime("2024-01-01T00:00:00Z")
	d := a.Sub(b)
	require.Equal(t, 86400, d.Seconds)
	require.False(t, d.Negative)
}
