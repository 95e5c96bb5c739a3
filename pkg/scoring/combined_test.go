package scoring_test

import (
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CombinedMSP", func() {
	DescribeTable("weighted blend",
		func(p scoring.PeriodTotals, expected int) {
			Expect(scoring.CombinedMSP(p)).To(Equal(expected))
		},
		Entry("weekly only", scoring.PeriodTotals{Weekly: 100}, 45),
		Entry("all-time only", scoring.PeriodTotals{AllTime: 100}, 5),
		Entry("monthly only", scoring.PeriodTotals{Monthly: 100}, 30),
		Entry("yearly only", scoring.PeriodTotals{Yearly: 100}, 20),
		Entry("all equal", scoring.PeriodTotals{Weekly: 100, Monthly: 100, Yearly: 100, AllTime: 100}, 100),
		Entry("half rounds up", scoring.PeriodTotals{AllTime: 10}, 1),
		Entry("below half rounds down", scoring.PeriodTotals{Weekly: 1}, 0),
		Entry("zero", scoring.PeriodTotals{}, 0),
	)

	It("is idempotent", func() {
		p := scoring.PeriodTotals{Weekly: 37, Monthly: 211, Yearly: 1400, AllTime: 1999}
		Expect(scoring.CombinedMSP(p)).To(Equal(scoring.CombinedMSP(p)))
	})
})

var _ = Describe("EngagementBonus", func() {
	var in scoring.Input

	BeforeEach(func() {
		posted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		in = scoring.Input{
			FollowerCount: 100,
			Text:          "excited to be part of this",
			PostedAt:      posted,
			Now:           posted.Add(time.Hour),
		}
	})

	It("scores only the delta", func() {
		prev := scoring.Engagement{Likes: 500, Retweets: 40, Replies: 12}
		curr := prev
		curr.Likes += 10

		deltaInput := in
		deltaInput.Engagement = scoring.Engagement{Likes: 10}
		deltaScore := scoring.CalculateMSP(deltaInput)

		bonus := scoring.EngagementBonus(in, prev, curr)
		Expect(deltaScore).To(Equal(39))
		Expect(bonus).To(Equal(10))
		Expect(bonus).To(BeNumerically("<=", int(float64(deltaScore)*0.25+0.5)))

		fullInput := in
		fullInput.Engagement = curr
		Expect(bonus).To(BeNumerically("<", scoring.CalculateMSP(fullInput)/4))
	})

	It("awards nothing without growth", func() {
		prev := scoring.Engagement{Likes: 5, Retweets: 1}
		Expect(scoring.EngagementBonus(in, prev, prev)).To(Equal(0))
	})

	It("floors shrinking counters at zero", func() {
		prev := scoring.Engagement{Likes: 50, Retweets: 5}
		curr := scoring.Engagement{Likes: 20, Retweets: 5}
		Expect(scoring.EngagementBonus(in, prev, curr)).To(Equal(0))

		curr = scoring.Engagement{Likes: 20, Retweets: 6}
		only := in
		only.Engagement = scoring.Engagement{Retweets: 1}
		Expect(scoring.EngagementBonus(in, prev, curr)).To(Equal(int(float64(scoring.CalculateMSP(only))*0.25 + 0.5)))
	})
})

var _ = Describe("Engagement", func() {
	It("keeps the highest value of each counter", func() {
		prev := scoring.Engagement{Likes: 10, Retweets: 0, Replies: 3, Quotes: -2}
		stale := scoring.Engagement{Likes: 9, Retweets: 1, Replies: 3}
		Expect(prev.Max(stale)).To(Equal(scoring.Engagement{Likes: 10, Retweets: 1, Replies: 3}))
		Expect(stale.Max(prev)).To(Equal(prev.Max(stale)))
	})
})
