// Package leaderboard ranks campaign participants over trailing time windows.
package leaderboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
)

type Period string

const (
	Weekly   Period = "weekly"
	Monthly  Period = "monthly"
	Yearly   Period = "yearly"
	AllTime  Period = "alltime"
	Combined Period = "combined"
)

var windows = map[Period]time.Duration{
	Weekly:  7 * 24 * time.Hour,
	Monthly: 30 * 24 * time.Hour,
	Yearly:  365 * 24 * time.Hour,
}

// ParsePeriod accepts a period name case-insensitively; empty means combined
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return Combined, nil
	case Weekly, Monthly, Yearly, AllTime, Combined:
		return p, nil
	}
	return "", fmt.Errorf("unknown leaderboard period %q", s)
}

type Entry struct {
	Rank         int                   `json:"rank"`
	UserID       string                `json:"user_id"`
	AuthorHandle string                `json:"author_handle"`
	Score        int                   `json:"score"`
	Posts        int                   `json:"posts"`
	Totals       *scoring.PeriodTotals `json:"totals,omitempty"`
}

// Build sums post points per user inside the period ending at now and ranks the
// users by score, highest first, ties by user id. Windows include their start.
// Combined entries carry the four period totals they were blended from.
func Build(posts []models.ScoredPost, now time.Time, period Period) ([]Entry, error) {
	if _, err := ParsePeriod(string(period)); err != nil {
		return nil, err
	}

	byUser := map[string]*Entry{}
	totals := map[string]*scoring.PeriodTotals{}
	for _, p := range posts {
		entry, ok := byUser[p.UserID]
		if !ok {
			entry = &Entry{UserID: p.UserID, AuthorHandle: p.AuthorHandle}
			byUser[p.UserID] = entry
			totals[p.UserID] = &scoring.PeriodTotals{}
		}

		t := totals[p.UserID]
		t.AllTime += p.MSP
		if within(p, now, Yearly) {
			t.Yearly += p.MSP
		}
		if within(p, now, Monthly) {
			t.Monthly += p.MSP
		}
		if within(p, now, Weekly) {
			t.Weekly += p.MSP
		}
		if period == Combined || period == AllTime || within(p, now, period) {
			entry.Posts++
		}
	}

	entries := make([]Entry, 0, len(byUser))
	for userID, entry := range byUser {
		t := totals[userID]
		switch period {
		case Weekly:
			entry.Score = t.Weekly
		case Monthly:
			entry.Score = t.Monthly
		case Yearly:
			entry.Score = t.Yearly
		case AllTime:
			entry.Score = t.AllTime
		default:
			entry.Score = scoring.CombinedMSP(*t)
			entry.Totals = t
		}
		if entry.Posts == 0 {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func within(p models.ScoredPost, now time.Time, period Period) bool {
	w, ok := windows[period]
	if !ok {
		return true
	}
	return !p.PostedAt.Before(now.Add(-w))
}
