// Package casemetrics derives case-level figures used by dashboards and
// document payloads.
package casemetrics

import (
	"sort"
	"strings"
	"time"

	"github.com/aldoetobex/pi-case-backend/internal/bundle"
)

// StatuteYears is the statute of limitations measured from the date of loss.
const StatuteYears = 2

// StatuteDeadline is the date of loss plus exactly two calendar years.
// A Feb 29 loss lands on Mar 1.
func StatuteDeadline(dateOfLoss time.Time) time.Time {
	return dateOfLoss.AddDate(StatuteYears, 0, 0)
}

// StatuteDeadlinePtr is StatuteDeadline for an optional date of loss.
func StatuteDeadlinePtr(dateOfLoss *time.Time) *time.Time {
	if dateOfLoss == nil {
		return nil
	}
	d := StatuteDeadline(*dateOfLoss)
	return &d
}

// TwoYearsAfterAccident is the date some templates print as "two years after
// the accident": 730 days after the loss, regardless of leap years.
func TwoYearsAfterAccident(dateOfLoss time.Time) time.Time {
	return dateOfLoss.AddDate(0, 0, 730)
}

// DaysUntil counts calendar days from now's date to the deadline's date.
// It returns nil without a deadline and goes negative once the date passes.
func DaysUntil(deadline *time.Time, now time.Time) *int {
	if deadline == nil {
		return nil
	}
	dl := civil(*deadline)
	today := civil(now)
	days := int(dl.Sub(today).Hours() / 24)
	return &days
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OrderClients returns the clients with drivers first, each group in entry order.
func OrderClients(clients []bundle.Client) []bundle.Client {
	out := append([]bundle.Client(nil), clients...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDriver != out[j].IsDriver {
			return out[i].IsDriver
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// DisplayName names a case after its clients:
//   - one client: "<Last>"
//   - shared last name: "<Last> Family"
//   - differing last names: "<Last1>-<Last2>"
//
// Clients without a last name fall back to first names, then "Unknown".
func DisplayName(clients []bundle.Client) string {
	ordered := OrderClients(clients)

	lasts := distinct(ordered, func(c bundle.Client) string { return c.LastName })
	switch {
	case len(lasts) == 1 && len(ordered) == 1:
		return lasts[0]
	case len(lasts) == 1:
		return lasts[0] + " Family"
	case len(lasts) > 1:
		return strings.Join(lasts, "-")
	}

	firsts := distinct(ordered, func(c bundle.Client) string { return c.FirstName })
	if len(firsts) > 0 {
		return strings.Join(firsts, "-")
	}
	return "Unknown"
}

// distinct collects non-blank names case-insensitively, keeping first spelling.
func distinct(clients []bundle.Client, name func(bundle.Client) string) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range clients {
		n := strings.TrimSpace(name(c))
		if n == "" || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		out = append(out, n)
	}
	return out
}
