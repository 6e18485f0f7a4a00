package changelog

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the timestamp layout the client accepts for -begindate / -enddate.
const DateFormat = "2006-01-02T15:04:05"

// reportLayouts are the timestamp layouts seen in client reports.
var reportLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/06 3:04 PM",
	DateFormat,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// FormatDate formats t for the client's date arguments.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// ParseDate parses a timestamp from a client report in local time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range reportLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
