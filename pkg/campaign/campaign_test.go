package campaign_test

import (
	"time"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/campaign"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoadCampaigns", func() {
	It("loads and normalizes a campaign file", func() {
		campaigns, err := campaign.LoadCampaigns("testdata/campaigns.json")
		Expect(err).NotTo(HaveOccurred())
		Expect(campaigns).To(HaveLen(3))

		Expect(campaigns[0]).To(Equal(campaign.Campaign{
			ID:      "acme-launch",
			Name:    "Acme launch week",
			Tag:     "#acme",
			StartAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}))
		Expect(campaigns[1].StartAt).To(Equal(time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC)))
		Expect(campaigns[2].StartAt.IsZero()).To(BeTrue())

		c, ok := campaign.Find(campaigns, "orbit")
		Expect(ok).To(BeTrue())
		Expect(c.Tag).To(Equal("#orbit"))
		_, ok = campaign.Find(campaigns, "missing")
		Expect(ok).To(BeFalse())
	})

	It("reports a missing file", func() {
		_, err := campaign.LoadCampaigns("testdata/nope.json")
		Expect(err).To(MatchError(ContainSubstring("reading campaigns")))
	})

	DescribeTable("rejects invalid documents",
		func(doc, message string) {
			_, err := campaign.ParseCampaigns([]byte(doc))
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("bad json", `{"campaigns": [`, "parsing campaigns"),
		Entry("missing id", `{"campaigns": [{"tag": "#a"}]}`, "id is required"),
		Entry("missing tag", `{"campaigns": [{"id": "a", "tag": "  "}]}`, "tag is required"),
		Entry("duplicate id", `{"campaigns": [{"id": "a", "tag": "#a"}, {"id": "a", "tag": "#b"}]}`, "duplicate id"),
		Entry("bad date", `{"campaigns": [{"id": "a", "tag": "#a", "startDate": "March 1st"}]}`, "parsing start date"),
	)
})
