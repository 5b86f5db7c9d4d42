package video

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration parses the ISO-8601 durations YouTube returns, e.g. PT1H2M3S.
func ParseISODuration(s string) (time.Duration, error) {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, err)
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}

// FormatDuration renders d as m:ss or h:mm:ss.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func ViewsLabel(n uint64) string {
	if n == 1 {
		return "1 view"
	}
	return humanize.Comma(int64(n)) + " views"
}

func PublishedLabel(published, now time.Time) string {
	if published.IsZero() {
		return ""
	}
	return humanize.RelTime(published, now, "ago", "from now")
}
