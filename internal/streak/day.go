package streak

import "time"

// Day is a canonical UTC calendar day, stored as days since the Unix epoch.
// All streak and eligibility math happens on Days so that server and client
// time zones can never disagree about where "today" starts.
type Day int64

const daySeconds = 24 * 60 * 60

// DayOf truncates any instant to its UTC calendar day.
func DayOf(t time.Time) Day {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return Day(midnight.Unix() / daySeconds)
}

// Time returns the UTC midnight at the start of the day.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*daySeconds, 0).UTC()
}

func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

// Sub returns the signed number of calendar days from o to d.
func (d Day) Sub(o Day) int {
	return int(d - o)
}

func (d Day) Before(o Day) bool {
	return d < o
}

func (d Day) String() string {
	return d.Time().Format("2006-01-02")
}
