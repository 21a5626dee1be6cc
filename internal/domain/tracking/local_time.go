package tracking

import "time"

const dateLayout = "2006-01-02"

// offsetMinutes is the UTC offset t was recorded with. Storage drivers hand
// timestamps back in UTC, so the offset is kept in its own column.
func offsetMinutes(t time.Time) int {
	_, secs := t.Zone()
	return secs / 60
}

// localTime returns t on the wall clock of the stored offset. A row that was
// never saved has no stored offset yet and keeps t's own location.
func localTime(t time.Time, minutes int, saved bool) time.Time {
	switch {
	case minutes != 0:
		return t.In(time.FixedZone("", minutes*60))
	case !saved:
		return t
	default:
		return t.UTC()
	}
}
