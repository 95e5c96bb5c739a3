package scoring_test

import (
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Calculate", func() {
	var (
		posted time.Time
		input  scoring.Input
	)

	BeforeEach(func() {
		posted = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		input = scoring.Input{
			Engagement: scoring.Engagement{Likes: 10, Retweets: 2, Replies: 1},
			Text:       "hello everyone",
			PostedAt:   posted,
			Now:        posted.Add(time.Hour),
		}
	})

	Context("with the reference scenario", func() {
		It("produces the documented value", func() {
			b := scoring.Calculate(input)
			Expect(b.Reach).To(BeNumerically("~", 15, 1e-9))
			Expect(b.Weighted).To(Equal(18))
			Expect(b.ContentType).To(Equal(scoring.ContentPost))
			Expect(b.EarlyAmplifier).To(BeFalse())
			Expect(b.BaseScore).To(BeNumerically("~", 42.28, 0.01))
			Expect(b.Points).To(Equal(42))
		})

		It("is deterministic", func() {
			first := scoring.CalculateMSP(input)
			for i := 0; i < 10; i++ {
				Expect(scoring.CalculateMSP(input)).To(Equal(first))
			}
		})

		It("applies the tier multiplier", func() {
			input.Tier = scoring.TierDiamond
			Expect(scoring.CalculateMSP(input)).To(Equal(127))
		})
	})

	Context("with empty or malformed input", func() {
		It("falls back to defaults and never goes negative", func() {
			Expect(scoring.CalculateMSP(scoring.Input{})).To(Equal(25))

			input.Engagement = scoring.Engagement{Likes: -5, Retweets: -1, Replies: -9, Quotes: -2}
			input.FollowerCount = -10
			b := scoring.Calculate(input)
			Expect(b.Weighted).To(Equal(0))
			Expect(b.Reach).To(BeNumerically("~", 15, 1e-9))
			Expect(b.Points).To(BeNumerically(">=", 0))
		})

		It("treats future timestamps as one hour old", func() {
			input.PostedAt = input.Now.Add(5 * time.Hour)
			Expect(scoring.Calculate(input).AgeHours).To(Equal(1.0))
		})
	})

	Context("relevance", func() {
		It("rewards project-tagged posts", func() {
			untagged := scoring.Calculate(input)
			input.ProjectTag = "#acme"
			tagged := scoring.Calculate(input)
			Expect(untagged.RelevanceScore).To(Equal(scoring.RelevanceBaseline))
			Expect(tagged.RelevanceScore).To(Equal(scoring.RelevanceTagged))
			Expect(tagged.Points).To(BeNumerically(">", untagged.Points))
		})
	})

	Context("age decay", func() {
		It("bottoms out at half after a week", func() {
			input.Now = posted.Add(30 * 24 * time.Hour)
			Expect(scoring.Calculate(input).DecayFactor).To(BeNumerically("~", 0.5, 1e-9))

			input.Now = posted.Add(84 * time.Hour)
			Expect(scoring.Calculate(input).DecayFactor).To(BeNumerically("~", 0.75, 1e-9))
		})
	})

	Context("monotonicity", func() {
		counters := map[string]func(*scoring.Engagement, int){
			"likes":    func(e *scoring.Engagement, v int) { e.Likes = v },
			"retweets": func(e *scoring.Engagement, v int) { e.Retweets = v },
			"replies":  func(e *scoring.Engagement, v int) { e.Replies = v },
			"quotes":   func(e *scoring.Engagement, v int) { e.Quotes = v },
		}

		for name, set := range counters {
			name, set := name, set
			It("never decreases when "+name+" grow", func() {
				prev := -1
				for v := 0; v <= 5000; v += 37 {
					set(&input.Engagement, v)
					got := scoring.CalculateMSP(input)
					Expect(got).To(BeNumerically(">=", prev), "%s=%d", name, v)
					prev = got
				}
			})
		}

		It("never decreases when the audience grows", func() {
			prev := -1
			for audience := 1; audience <= 1_000_000; audience *= 3 {
				input.FollowerCount = audience
				got := scoring.CalculateMSP(input)
				Expect(got).To(BeNumerically(">=", prev))
				prev = got
			}
		})
	})
})

var _ = Describe("IsEarlyAmplifier", func() {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	DescribeTable("window boundaries",
		func(offset time.Duration, expected bool) {
			Expect(scoring.IsEarlyAmplifier(start.Add(offset), start)).To(Equal(expected))
		},
		Entry("at campaign start", time.Duration(0), true),
		Entry("one hour in", time.Hour, true),
		Entry("exactly 24 hours in", 24*time.Hour, true),
		Entry("just past 24 hours", 24*time.Hour+time.Second, false),
		Entry("before the campaign", -time.Minute, false),
	)

	It("is false without a campaign start", func() {
		Expect(scoring.IsEarlyAmplifier(start, time.Time{})).To(BeFalse())
	})

	It("multiplies the score by 1.5", func() {
		in := scoring.Input{
			Engagement: scoring.Engagement{Likes: 10, Retweets: 2, Replies: 1},
			PostedAt:   start.Add(time.Hour),
			Now:        start.Add(2 * time.Hour),
		}
		late := scoring.Calculate(in)
		in.CampaignStart = start
		early := scoring.Calculate(in)
		Expect(early.EarlyAmplifier).To(BeTrue())
		Expect(float64(early.Points)).To(BeNumerically("~", late.BaseScore*1.5, 0.5))
	})
})

var _ = Describe("Tier", func() {
	It("maps the five tiers to 1.0 through 3.0", func() {
		Expect(scoring.TierBronze.Multiplier()).To(Equal(1.0))
		Expect(scoring.TierSilver.Multiplier()).To(Equal(1.5))
		Expect(scoring.TierGold.Multiplier()).To(Equal(2.0))
		Expect(scoring.TierPlatinum.Multiplier()).To(Equal(2.5))
		Expect(scoring.TierDiamond.Multiplier()).To(Equal(3.0))
		Expect(scoring.Tier(0).Multiplier()).To(Equal(1.0))
		Expect(scoring.Tier(9).Multiplier()).To(Equal(1.0))
	})
})
