package sources_test

import (
	"os"
	"strings"
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NitterParser", func() {
	var page []byte

	BeforeEach(func() {
		var err error
		page, err = os.ReadFile("testdata/timeline.html")
		Expect(err).NotTo(HaveOccurred())
	})

	It("extracts every usable block and drops the rest", func() {
		posts, err := sources.ParsePage(strings.NewReader(string(page)), sources.NitterParser{}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(posts).To(HaveLen(3))

		alice := posts[0]
		Expect(alice.ID).To(Equal("1790000000000000001"))
		Expect(alice.AuthorHandle).To(Equal("alice"))
		Expect(alice.AuthorName).To(Equal("Alice Example"))
		Expect(alice.AvatarURL).To(Equal("/pic/alice.jpg"))
		Expect(alice.Text).To(Equal("Shipping day for #acme #MindShare"))
		Expect(alice.CreatedAt).To(Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
		Expect(alice.Replies).To(Equal(1))
		Expect(alice.Retweets).To(Equal(2))
		Expect(alice.Quotes).To(Equal(0))
		Expect(alice.Likes).To(Equal(10))
		Expect(alice.Views).NotTo(BeNil())
		Expect(*alice.Views).To(Equal(1204))

		bob := posts[1]
		Expect(bob.Likes).To(Equal(1200))
		Expect(bob.Retweets).To(Equal(3000000))
		Expect(bob.Views).To(BeNil())
	})

	It("keeps blocks without a status id so an identifier can be derived later", func() {
		posts, err := sources.ParsePage(strings.NewReader(string(page)), sources.NitterParser{}, 0)
		Expect(err).NotTo(HaveOccurred())

		carol := posts[2]
		Expect(carol.AuthorHandle).To(Equal("carol"))
		Expect(carol.ID).To(BeEmpty())
		Expect(carol.CreatedAt.IsZero()).To(BeTrue())
	})

	It("honours the limit", func() {
		posts, err := sources.ParsePage(strings.NewReader(string(page)), sources.NitterParser{}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(posts).To(HaveLen(1))
	})

	It("tolerates garbage", func() {
		for _, junk := range []string{"", "<div class=\"timeline-item\">", "not html at all", "<<<>>>"} {
			posts, err := sources.ParsePage(strings.NewReader(junk), sources.NitterParser{}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(posts).To(BeEmpty())
		}
	})
})
