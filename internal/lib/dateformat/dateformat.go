// Package dateformat converts submission dates to and from the form layout.
//
// Functions are pure: the layout and location are always passed in, so no
// formatter state is shared between requests.
package dateformat

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the form layout, yyyy-MM-dd HH:mm.
const Layout = "2006-01-02 15:04"

// Parse reads value with layout in loc. A nil loc means time.Local.
func Parse(layout, value string, loc *time.Location) (time.Time, error) {
	const op = "dateformat.Parse"

	if loc == nil {
		loc = time.Local
	}

	t, err := time.ParseInLocation(layout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// Format renders t with layout in loc. A nil loc means time.Local.
func Format(layout string, t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	return t.In(loc).Format(layout)
}
