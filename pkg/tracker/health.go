package tracker

import (
	"context"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/db/models"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/metrics"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/store"
)

// PersistHealth stores a health snapshot as SourceEndpoint rows and mirrors it
// into the endpoint gauge
func PersistHealth(ctx context.Context, st store.Store, snapshot []sources.EndpointHealth, m *metrics.Metrics) error {
	if len(snapshot) == 0 {
		return nil
	}
	rows := make([]models.SourceEndpoint, 0, len(snapshot))
	for _, h := range snapshot {
		rows = append(rows, models.SourceEndpoint{
			Address:             h.Address,
			Healthy:             h.Healthy,
			LatencyMS:           h.Latency.Milliseconds(),
			ConsecutiveFailures: h.ConsecutiveFailures,
			LastError:           h.LastError,
			LastChecked:         h.LastChecked,
		})
		m.EndpointHealth(h.Address, h.Healthy)
	}
	return st.SaveEndpointHealth(ctx, rows)
}
