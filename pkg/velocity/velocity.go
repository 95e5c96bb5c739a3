// Package velocity buckets scored posts by UTC hour and day for momentum charts.
package velocity

import (
	"sort"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
)

const (
	HourLayout = "2006-01-02T15"
	DayLayout  = "2006-01-02"

	// SeriesDays is the length of the daily series ending at the latest day
	SeriesDays = 7
)

// Bucket aggregates the posts whose PostedAt falls in [Start, Start+width)
type Bucket struct {
	Key    string    `json:"key"`
	Start  time.Time `json:"start"`
	Posts  int       `json:"posts"`
	Points int       `json:"points"`
}

type Report struct {
	Hourly []Bucket `json:"hourly"`
	Daily  []Bucket `json:"daily"`

	// LatestHourPosts and LatestDayPosts count the most recent bucket that has data
	LatestHourPosts int `json:"latest_hour_posts"`
	LatestDayPosts  int `json:"latest_day_posts"`

	// LastSevenDays is contiguous and zero-filled, oldest first
	LastSevenDays []Bucket `json:"last_seven_days"`
}

// Build aggregates posts. Points include engagement bonuses.
func Build(posts []models.ScoredPost) Report {
	hours := map[string]*Bucket{}
	days := map[string]*Bucket{}

	for _, p := range posts {
		at := p.PostedAt.UTC()
		add(hours, at.Truncate(time.Hour), HourLayout, p.MSP)
		add(days, startOfDay(at), DayLayout, p.MSP)
	}

	report := Report{
		Hourly:        sorted(hours),
		Daily:         sorted(days),
		LastSevenDays: []Bucket{},
	}
	if len(report.Hourly) == 0 {
		return report
	}
	report.LatestHourPosts = report.Hourly[len(report.Hourly)-1].Posts
	latestDay := report.Daily[len(report.Daily)-1]
	report.LatestDayPosts = latestDay.Posts

	for i := SeriesDays - 1; i >= 0; i-- {
		day := latestDay.Start.AddDate(0, 0, -i)
		key := day.Format(DayLayout)
		if b, ok := days[key]; ok {
			report.LastSevenDays = append(report.LastSevenDays, *b)
			continue
		}
		report.LastSevenDays = append(report.LastSevenDays, Bucket{Key: key, Start: day})
	}
	return report
}

func add(buckets map[string]*Bucket, start time.Time, layout string, points int) {
	key := start.Format(layout)
	b, ok := buckets[key]
	if !ok {
		b = &Bucket{Key: key, Start: start}
		buckets[key] = b
	}
	b.Posts++
	b.Points += points
}

func sorted(buckets map[string]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Popularity is the composite used to rank top posts
func Popularity(p models.ScoredPost) int {
	return p.Likes + 3*p.Retweets
}

// TopPosts returns up to limit posts by Popularity, highest first. Ties go to the
// higher score, then the lower identifier. A non-positive limit returns all posts.
func TopPosts(posts []models.ScoredPost, limit int) []models.ScoredPost {
	out := append([]models.ScoredPost(nil), posts...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := Popularity(out[i]), Popularity(out[j])
		if pi != pj {
			return pi > pj
		}
		if out[i].MSP != out[j].MSP {
			return out[i].MSP > out[j].MSP
		}
		return out[i].TweetID < out[j].TweetID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
