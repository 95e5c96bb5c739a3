package scoring_test

import (
	"github.com/lisanmuaddib/mindshare-tracker/pkg/scoring"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DetectContentType", func() {
	DescribeTable("classification",
		func(text string, expected scoring.ContentType) {
			Expect(scoring.DetectContentType(text)).To(Equal(expected))
		},
		Entry("thread keyword", "A THREAD on why restaking matters", scoring.ContentThread),
		Entry("thread emoji", "why restaking matters 🧵", scoring.ContentThread),
		Entry("numbered prefix", "1/ why restaking matters", scoring.ContentThread),
		Entry("numbered of total", "1/5 why restaking matters", scoring.ContentThread),
		Entry("numbered list item", "2. restaking matters", scoring.ContentThread),
		Entry("leading decimal", "1.5x gains since the launch", scoring.ContentPost),
		Entry("leading date", "2024/03/01 launch recap", scoring.ContentPost),
		Entry("video keyword", "Watch our launch stream", scoring.ContentVideo),
		Entry("analysis keyword", "A deep dive into the tokenomics", scoring.ContentAnalysis),
		Entry("emoji density", "to the moon 🚀🚀🚀🚀", scoring.ContentMeme),
		Entry("slang", "gm ser, lfg", scoring.ContentMeme),
		Entry("plain post", "excited to be part of this", scoring.ContentPost),
		Entry("thread wins over video", "thread: every video from the summit", scoring.ContentThread),
		Entry("video wins over analysis", "video breakdown of the launch", scoring.ContentVideo),
		Entry("analysis wins over meme", "research says gm 🚀🚀🚀🚀", scoring.ContentAnalysis),
	)

	It("does not treat slang inside longer words as slang", func() {
		Expect(scoring.DetectContentType("the gmail outage is over")).To(Equal(scoring.ContentPost))
	})

	It("exposes the fixed bonuses", func() {
		Expect(scoring.ContentPost.Bonus()).To(Equal(1.0))
		Expect(scoring.ContentThread.Bonus()).To(Equal(1.5))
		Expect(scoring.ContentVideo.Bonus()).To(Equal(2.0))
		Expect(scoring.ContentMeme.Bonus()).To(Equal(1.2))
		Expect(scoring.ContentAnalysis.Bonus()).To(Equal(1.8))
	})
})
