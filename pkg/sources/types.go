package sources

import (
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
)

// CandidatePost is a post observed on a mirror before it is deduplicated and scored
type CandidatePost struct {
	// ID is the mirror-provided status id; empty when the block carried none
	ID           string    `json:"id,omitempty"`
	AuthorHandle string    `json:"author_handle"`
	AuthorName   string    `json:"author_name,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	Likes        int       `json:"likes"`
	Retweets     int       `json:"retweets"`
	Replies      int       `json:"replies"`
	Quotes       int       `json:"quotes"`
	Views        *int      `json:"views,omitempty"`
	// Endpoint is the mirror the post was read from
	Endpoint string `json:"endpoint,omitempty"`
}

// Engagement returns the post's counters in scoring form
func (p CandidatePost) Engagement() scoring.Engagement {
	return scoring.Engagement{
		Likes:    p.Likes,
		Retweets: p.Retweets,
		Replies:  p.Replies,
		Quotes:   p.Quotes,
	}
}

// FetchResult is the outcome of one gateway fetch
type FetchResult struct {
	Endpoint string          `json:"endpoint"`
	Posts    []CandidatePost `json:"posts"`
	// Attempts is the number of endpoints tried, including the successful one
	Attempts int `json:"attempts"`
	// Failures lists the endpoints that failed before the successful one
	Failures []error `json:"-"`
}
