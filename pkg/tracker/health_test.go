package tracker_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/metrics"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/store/memstore"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/tracker"
)

var _ = Describe("PersistHealth", func() {
	It("stores the snapshot and updates the gauge", func() {
		mem := memstore.New()
		m := metrics.New()
		checked := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		err := tracker.PersistHealth(context.Background(), mem, []sources.EndpointHealth{
			{Address: "https://a.test", Healthy: true, Latency: 120 * time.Millisecond, LastChecked: checked},
			{Address: "https://b.test", ConsecutiveFailures: 3, LastError: "timeout", LastChecked: checked},
		}, m)
		Expect(err).NotTo(HaveOccurred())

		rows := mem.Endpoints()
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].LatencyMS).To(Equal(int64(120)))
		Expect(rows[1].Healthy).To(BeFalse())
		Expect(rows[1].ConsecutiveFailures).To(Equal(3))

		count, err := testutil.GatherAndCount(m.Registry(), "mindshare_endpoint_healthy")
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
	})

	It("ignores an empty snapshot", func() {
		Expect(tracker.PersistHealth(context.Background(), memstore.New(), nil, nil)).To(Succeed())
	})
})
