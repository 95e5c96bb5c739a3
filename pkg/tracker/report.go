package tracker

import (
	"fmt"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/metrics"
)

// RunReport is the outcome of one campaign run. A run never fails outright: what
// went wrong is listed in Errors and the counts show how far it got.
type RunReport struct {
	RunID      string    `json:"run_id"`
	CampaignID string    `json:"campaign_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Endpoint   string    `json:"endpoint,omitempty"`

	Fetched    int `json:"fetched"`
	New        int `json:"new"`
	Duplicates int `json:"duplicates"`
	Refreshed  int `json:"refreshed"`
	Rejected   int `json:"rejected"`
	Collisions int `json:"collisions"`
	Failed     int `json:"failed"`

	PointsAwarded int `json:"points_awarded"`
	BonusPoints   int `json:"bonus_points"`

	// CheckpointSaved is false when the run stopped before the batch completed
	CheckpointSaved bool     `json:"checkpoint_saved"`
	Errors          []string `json:"errors"`

	outcome string
}

func (r *RunReport) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Outcome classifies the run for metrics
func (r *RunReport) Outcome() string {
	if r.outcome != "" {
		return r.outcome
	}
	if len(r.Errors) > 0 {
		return metrics.RunPartial
	}
	return metrics.RunSucceeded
}

// OK reports whether the run finished without errors
func (r *RunReport) OK() bool {
	return len(r.Errors) == 0
}

// BatchStatus is the progress of a TrackAll batch
type BatchStatus struct {
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	StartTime time.Time `json:"start_time"`
}

// BatchReport collects the run reports of a TrackAll batch in campaign order
type BatchReport struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Runs       []*RunReport `json:"runs"`
}

// Totals sums new posts and awarded points over every run
func (b *BatchReport) Totals() (newPosts, points int) {
	for _, r := range b.Runs {
		newPosts += r.New
		points += r.PointsAwarded + r.BonusPoints
	}
	return newPosts, points
}
