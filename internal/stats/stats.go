// Package stats derives read-only metrics from shortened URLs.
// Nothing here mutates a record.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vadimbarashkov/short-links/internal/entity"
)

// ExpiredText is what TimeRemainingText returns once a URL has expired.
const ExpiredText = "Expired"

// Summary aggregates metrics over all URLs.
type Summary struct {
	TotalURLs     int
	ActiveURLs    int
	ExpiredURLs   int
	TotalClicks   int64
	AverageClicks float64
}

// URLStats is a per-URL projection computed at a point in time.
type URLStats struct {
	URL               *entity.URL
	IsExpired         bool
	ClickRate         float64       // clicks per hour
	TimeRemaining     time.Duration // 0 once expired
	TimeRemainingText string
}

// Report combines the summary with per-URL projections ordered by click count, highest first.
type Report struct {
	Summary Summary
	URLs    []URLStats
}

// Summarize computes the summary of urls at now.
func Summarize(urls []*entity.URL, now time.Time) Summary {
	var s Summary

	s.TotalURLs = len(urls)
	for _, u := range urls {
		if !u.IsExpired(now) {
			s.ActiveURLs++
		}
		s.TotalClicks += u.ClickCount
	}
	s.ExpiredURLs = s.TotalURLs - s.ActiveURLs

	if s.TotalURLs > 0 {
		s.AverageClicks = round2(float64(s.TotalClicks) / float64(s.TotalURLs))
	}

	return s
}

// Project computes the per-URL metrics of u at now.
func Project(u *entity.URL, now time.Time) URLStats {
	remaining := TimeRemaining(u, now)

	return URLStats{
		URL:               u,
		IsExpired:         u.IsExpired(now),
		ClickRate:         ClickRate(u, now),
		TimeRemaining:     remaining,
		TimeRemainingText: FormatTimeRemaining(remaining),
	}
}

// Build computes the full report for urls at now.
func Build(urls []*entity.URL, now time.Time) Report {
	projected := make([]URLStats, 0, len(urls))
	for _, u := range urls {
		projected = append(projected, Project(u, now))
	}

	sort.SliceStable(projected, func(i, j int) bool {
		return projected[i].URL.ClickCount > projected[j].URL.ClickCount
	})

	return Report{
		Summary: Summarize(urls, now),
		URLs:    projected,
	}
}

// ClickRate returns clicks per hour since creation rounded to two decimals.
// URLs younger than an hour are treated as one hour old.
func ClickRate(u *entity.URL, now time.Time) float64 {
	hours := int64(now.Sub(u.CreatedAt) / time.Hour)
	if hours < 1 {
		hours = 1
	}

	return round2(float64(u.ClickCount) / float64(hours))
}

// TimeRemaining returns the time left until expiry truncated to the millisecond,
// or 0 when there is none left.
func TimeRemaining(u *entity.URL, now time.Time) time.Duration {
	d := u.ExpiresAt.Sub(now)
	if d <= 0 {
		return 0
	}

	return d.Truncate(time.Millisecond)
}

// FormatTimeRemaining renders d as "2d 3h", "3h 15m" or "15m".
// Anything left under a minute renders as "0m".
func FormatTimeRemaining(d time.Duration) string {
	if d <= 0 {
		return ExpiredText
	}

	minutes := int64(d / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
