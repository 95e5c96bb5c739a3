// Package scoring converts a post's engagement counters into Mindshare Points (MSP).
// Every function in this package is pure: the caller supplies the clock through
// Input.Now, so identical inputs always produce identical points.
package scoring

import (
	"math"
	"time"
)

// Default values used when the caller leaves an optional field empty
const (
	// DefaultAudience is the assumed follower count when the real one is unknown
	DefaultAudience = 100

	// ReachRatio is the share of an audience assumed to see a post
	ReachRatio = 0.15

	// MaxSubScore caps every sub-score
	MaxSubScore = 100.0

	// RelevanceTagged is the relevance of a post tagged to a specific project
	RelevanceTagged = 70.0
	// RelevanceBaseline is the relevance of an untagged post
	RelevanceBaseline = 50.0
	// CredibilityDefault is a flat placeholder until identity-trust signals exist
	CredibilityDefault = 50.0

	// DecayWindowHours is the age at which the decay factor bottoms out
	DecayWindowHours = 168.0
	// DecayFloor is the decay factor for content a week old or older
	DecayFloor = 0.5

	// EarlyAmplifierWindow is how long after campaign start a post counts as early
	EarlyAmplifierWindow = 24 * time.Hour
	// EarlyAmplifierBonus multiplies the score of early posts
	EarlyAmplifierBonus = 1.5
)

// Action weights for the weighted engagement sum
const (
	LikeWeight    = 1
	ReplyWeight   = 2
	RetweetWeight = 3
	QuoteWeight   = 5
)

// Sub-score weights for the base score. They sum to 1.
const (
	ReachWeight       = 0.25
	EngagementWeight  = 0.25
	RelevanceWeight   = 0.20
	CredibilityWeight = 0.15
	VelocityWeight    = 0.15
)

// Engagement holds the raw public counters of a post
type Engagement struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Replies  int `json:"replies"`
	Quotes   int `json:"quotes"`
}

// Clamp returns a copy with negative counters replaced by zero
func (e Engagement) Clamp() Engagement {
	return Engagement{
		Likes:    clampInt(e.Likes),
		Retweets: clampInt(e.Retweets),
		Replies:  clampInt(e.Replies),
		Quotes:   clampInt(e.Quotes),
	}
}

// Weighted returns the weighted engagement sum of the clamped counters
func (e Engagement) Weighted() int {
	c := e.Clamp()
	return c.Likes*LikeWeight + c.Replies*ReplyWeight + c.Retweets*RetweetWeight + c.Quotes*QuoteWeight
}

// Delta returns the per-counter growth from prev to e, floored at zero
func (e Engagement) Delta(prev Engagement) Engagement {
	c, p := e.Clamp(), prev.Clamp()
	return Engagement{
		Likes:    clampInt(c.Likes - p.Likes),
		Retweets: clampInt(c.Retweets - p.Retweets),
		Replies:  clampInt(c.Replies - p.Replies),
		Quotes:   clampInt(c.Quotes - p.Quotes),
	}
}

// Max returns the per-counter maximum of e and other, clamped at zero
func (e Engagement) Max(other Engagement) Engagement {
	c, o := e.Clamp(), other.Clamp()
	return Engagement{
		Likes:    max(c.Likes, o.Likes),
		Retweets: max(c.Retweets, o.Retweets),
		Replies:  max(c.Replies, o.Replies),
		Quotes:   max(c.Quotes, o.Quotes),
	}
}

// IsZero reports whether every counter is zero or negative
func (e Engagement) IsZero() bool {
	return e.Clamp() == Engagement{}
}

// Input is everything the engine needs to score one post
type Input struct {
	Engagement

	// FollowerCount is the author's audience size; values <= 0 mean unknown
	FollowerCount int
	// ProjectTag is the optional project tag the post was attributed to
	ProjectTag string
	// Text is the post body, used for content type detection
	Text string
	// PostedAt is when the post was published; zero means Now
	PostedAt time.Time
	// CampaignStart is the campaign start; zero disables the early amplifier bonus
	CampaignStart time.Time
	// Tier is the author's reward tier, supplied by the caller
	Tier Tier
	// Now is the evaluation clock
	Now time.Time
}

// Breakdown exposes every intermediate value of a score calculation
type Breakdown struct {
	Reach           float64     `json:"reach"`
	ReachScore      float64     `json:"reach_score"`
	Weighted        int         `json:"weighted_engagement"`
	EngagementScore float64     `json:"engagement_score"`
	RelevanceScore  float64     `json:"relevance_score"`
	Credibility     float64     `json:"credibility_score"`
	AgeHours        float64     `json:"age_hours"`
	DecayFactor     float64     `json:"decay_factor"`
	Velocity        float64     `json:"velocity"`
	VelocityScore   float64     `json:"velocity_score"`
	BaseScore       float64     `json:"base_score"`
	ContentType     ContentType `json:"content_type"`
	ContentBonus    float64     `json:"content_bonus"`
	EarlyAmplifier  bool        `json:"early_amplifier"`
	EarlyBonus      float64     `json:"early_bonus"`
	TierMultiplier  float64     `json:"tier_multiplier"`
	Points          int         `json:"points"`
}

// Calculate scores a post and returns the full breakdown.
//
// The final value is round(base × tier × content bonus × early bonus) where base is
// the weighted blend of the reach, engagement, relevance, credibility and velocity
// sub-scores. Malformed numeric input is clamped, never rejected.
func Calculate(in Input) Breakdown {
	var b Breakdown

	audience := in.FollowerCount
	if audience <= 0 {
		audience = DefaultAudience
	}
	b.Reach = math.Max(1, float64(audience)*ReachRatio)
	b.ReachScore = capScore(25 * math.Log10(b.Reach+1))

	b.Weighted = in.Engagement.Weighted()
	b.EngagementScore = capScore(30 * math.Log10(float64(b.Weighted)+1))

	b.RelevanceScore = RelevanceBaseline
	if in.ProjectTag != "" {
		b.RelevanceScore = RelevanceTagged
	}
	b.Credibility = CredibilityDefault

	b.AgeHours = ageHours(in.PostedAt, in.Now)
	b.DecayFactor = 1 - (1-DecayFloor)*math.Min(b.AgeHours, DecayWindowHours)/DecayWindowHours

	b.Velocity = float64(b.Weighted) / b.AgeHours * b.DecayFactor
	b.VelocityScore = capScore(40 * math.Log10(b.Velocity+1))

	b.BaseScore = b.ReachScore*ReachWeight +
		b.EngagementScore*EngagementWeight +
		b.RelevanceScore*RelevanceWeight +
		b.Credibility*CredibilityWeight +
		b.VelocityScore*VelocityWeight

	b.ContentType = DetectContentType(in.Text)
	b.ContentBonus = b.ContentType.Bonus()

	b.EarlyAmplifier = IsEarlyAmplifier(in.PostedAt, in.CampaignStart)
	b.EarlyBonus = 1.0
	if b.EarlyAmplifier {
		b.EarlyBonus = EarlyAmplifierBonus
	}

	b.TierMultiplier = in.Tier.Multiplier()

	points := roundHalfUp(b.BaseScore * b.TierMultiplier * b.ContentBonus * b.EarlyBonus)
	if points < 0 {
		points = 0
	}
	b.Points = points
	return b
}

// CalculateMSP returns only the integer point value of Calculate
func CalculateMSP(in Input) int {
	return Calculate(in).Points
}

// IsEarlyAmplifier reports whether postedAt falls within the first 24 hours of the
// campaign, both ends inclusive. A zero campaign start never qualifies.
func IsEarlyAmplifier(postedAt, campaignStart time.Time) bool {
	if campaignStart.IsZero() || postedAt.IsZero() {
		return false
	}
	since := postedAt.Sub(campaignStart)
	return since >= 0 && since <= EarlyAmplifierWindow
}

func ageHours(postedAt, now time.Time) float64 {
	if postedAt.IsZero() || now.IsZero() {
		return 1
	}
	return math.Max(1, now.Sub(postedAt).Hours())
}

func capScore(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return math.Min(MaxSubScore, v)
}

// roundHalfUp rounds x to the nearest integer, halves upward
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
