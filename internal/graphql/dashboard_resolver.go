package graphql

import (
	graphql "github.com/graph-gophers/graphql-go"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
	"github.com/ephyr-go/restreamer/internal/dvr"
	"github.com/ephyr-go/restreamer/internal/hooks"
	"github.com/ephyr-go/restreamer/internal/serverinfo"
	"github.com/ephyr-go/restreamer/internal/store"
)

// DashboardResolver backs the read-only dashboard schema (§4.7): status
// counts, host telemetry, the DVR listing, and per-endpoint client
// counts sourced from the hook dispatcher's runtime-only counters.
type DashboardResolver struct {
	store   *store.Store
	dvr     *dvr.Sweeper
	info    *serverinfo.Collector
	clients *hooks.ClientCounter
}

// NewDashboardResolver constructs a DashboardResolver.
func NewDashboardResolver(st *store.Store, sweeper *dvr.Sweeper, info *serverinfo.Collector, clients *hooks.ClientCounter) *DashboardResolver {
	return &DashboardResolver{store: st, dvr: sweeper, info: info, clients: clients}
}

type dashboardSummaryView struct {
	restreamCount, outputCount, onlineEndpointCount, onlineOutputCount int32
}

func (v dashboardSummaryView) RestreamCount() int32       { return v.restreamCount }
func (v dashboardSummaryView) OutputCount() int32         { return v.outputCount }
func (v dashboardSummaryView) OnlineEndpointCount() int32 { return v.onlineEndpointCount }
func (v dashboardSummaryView) OnlineOutputCount() int32   { return v.onlineOutputCount }

func (r *DashboardResolver) Summary() dashboardSummaryView {
	snap := r.store.Snapshot()
	var v dashboardSummaryView
	for _, rs := range snap.State.Restreams {
		v.restreamCount++
		v.outputCount += int32(len(rs.Outputs))
		countOnlineEndpoints(&rs.Input, &v.onlineEndpointCount)
		for _, o := range rs.Outputs {
			if o.Status == restream.StatusOnline {
				v.onlineOutputCount++
			}
		}
	}
	return v
}

func countOnlineEndpoints(in *restream.Input, n *int32) {
	for _, e := range in.Endpoints {
		if e.Status == restream.StatusOnline {
			*n++
		}
	}
	for i := range in.Failover {
		countOnlineEndpoints(&in.Failover[i], n)
	}
}

type serverInfoView struct{ info serverinfo.Info }

func (v serverInfoView) CPUUsagePercent() float64 { return v.info.CPUUsagePercent }
func (v serverInfoView) RAMUsagePercent() float64 { return v.info.RAMUsagePercent }
func (v serverInfoView) Goroutines() int32        { return int32(v.info.NumGoroutines) }

func (r *DashboardResolver) ServerInfo() serverInfoView {
	return serverInfoView{r.info.Current()}
}

type dvrFileView struct{ e dvr.Entry }

func (v dvrFileView) Name() string     { return v.e.Name }
func (v dvrFileView) SizeBytes() int32 { return int32(v.e.SizeBytes) }
func (v dvrFileView) Referenced() bool { return v.e.Referenced }

func (r *DashboardResolver) DvrFiles() ([]dvrFileView, error) {
	entries, err := r.dvr.List()
	if err != nil {
		return nil, err
	}
	out := make([]dvrFileView, len(entries))
	for i, e := range entries {
		out[i] = dvrFileView{e}
	}
	return out, nil
}

type clientStatView struct {
	endpointID string
	count      int32
}

func (v clientStatView) EndpointID() graphql.ID { return graphql.ID(v.endpointID) }
func (v clientStatView) Count() int32           { return v.count }

func (r *DashboardResolver) ClientStats() []clientStatView {
	counts := r.clients.Snapshot()
	out := make([]clientStatView, 0, len(counts))
	for id, n := range counts {
		out = append(out, clientStatView{endpointID: string(id), count: int32(n)})
	}
	return out
}
