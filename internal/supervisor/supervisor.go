// Package supervisor wires the whole process together:
// the state store, the RTMP server controller, the hook dispatcher, the
// reconciler, the GraphQL surfaces, and the periodic DVR/telemetry
// sweepers, and drives graceful shutdown on cancellation.
package supervisor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/config"
	"github.com/ephyr-go/restreamer/internal/dvr"
	graphqlapi "github.com/ephyr-go/restreamer/internal/graphql"
	"github.com/ephyr-go/restreamer/internal/hooks"
	"github.com/ephyr-go/restreamer/internal/httpapi"
	"github.com/ephyr-go/restreamer/internal/reconciler"
	"github.com/ephyr-go/restreamer/internal/rtmpserver"
	"github.com/ephyr-go/restreamer/internal/serverinfo"
	"github.com/ephyr-go/restreamer/internal/store"
)

// dvrSweepInterval and serverInfoInterval are the cadences of the two
// background upkeep loops (§ periodic upkeep). The RTMP server itself is
// reconciled synchronously on every state version, not on a ticker.
//
// restartSettleGrace bounds the restart-debounce window of §C.6: an
// endpoint dropped to Initializing by an RTMP server restart that hasn't
// received a fresh on_publish within this window falls to Offline.
const (
	dvrSweepInterval   = 5 * time.Minute
	serverInfoInterval = 5 * time.Second
	restartSettleGrace = 10 * time.Second
)

// Supervisor owns the lifetime of every long-running component.
type Supervisor struct {
	log *zap.Logger
	cfg *config.Config

	Store   *store.Store
	RTMP    *rtmpserver.Controller
	Hooks   *hooks.Dispatcher
	Recon   *reconciler.Reconciler
	DVR     *dvr.Sweeper
	Info    *serverinfo.Collector
	Schemas *graphqlapi.Schemas
}

// New wires every component. It does not start any of them.
func New(log *zap.Logger, cfg *config.Config) (*Supervisor, error) {
	st, err := store.New(log, cfg.StatePath)
	if err != nil {
		return nil, err
	}

	rtmp := rtmpserver.NewController(log, cfg.RTMPBinary, cfg.RTMPConfigPath, "http://"+cfg.HookAddr, cfg.HLSDir)
	clientCounter := hooks.NewClientCounter()
	dispatcher := hooks.New(log, st, clientCounter)
	recon := reconciler.New(log, st, cfg.MixinPipeDir)
	sweeper := dvr.New(log, st, cfg.DVRDir, time.Duration(cfg.DVRTTLHours)*time.Hour)
	info := serverinfo.NewCollector(log)

	clientResolver := graphqlapi.NewClientResolver(st)
	mixResolver := graphqlapi.NewMixResolver(st)
	dashboardResolver := graphqlapi.NewDashboardResolver(st, sweeper, info, dispatcher.Clients())
	schemas, err := graphqlapi.NewSchemas(clientResolver, mixResolver, dashboardResolver)
	if err != nil {
		return nil, err
	}

	return &Supervisor{
		log:     log.Named("supervisor"),
		cfg:     cfg,
		Store:   st,
		RTMP:    rtmp,
		Hooks:   dispatcher,
		Recon:   recon,
		DVR:     sweeper,
		Info:    info,
		Schemas: schemas,
	}, nil
}

// Run starts every background component and blocks until ctx is
// cancelled, then shuts each of them down: reconciler first (stopping
// every supervised ffmpeg/pull process), then the RTMP server, letting
// the store's own persist goroutine flush the final version.
func (s *Supervisor) Run(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Recon.Run(gctx)
		return nil
	})

	g.Go(func() error {
		s.reconcileRTMP(gctx)
		return nil
	})

	stop := make(chan struct{})
	g.Go(func() error {
		s.DVR.Run(stop, dvrSweepInterval)
		return nil
	})

	g.Go(func() error {
		s.Info.Run(gctx, serverInfoInterval)
		return nil
	})

	<-ctx.Done()
	s.log.Info("shutting down")
	close(stop)
	_ = g.Wait()
	s.RTMP.Stop()
}

// reconcileRTMP re-renders and restarts the RTMP server whenever the
// state document changes, independent of the reconciler's own ffmpeg
// unit diffing (the two operate on the same snapshots but own disjoint
// process sets).
func (s *Supervisor) reconcileRTMP(ctx context.Context) {
	sub := s.Store.Subscribe(ctx)
	for snap := range sub {
		restarted, err := s.RTMP.Reconcile(snap.State)
		if err != nil {
			s.log.Error("rtmp reconcile failed", zap.Error(err))
			continue
		}
		if !restarted {
			continue
		}
		s.Store.DemoteAllInputEndpoints()
		go s.settleAfterRestart(ctx)
	}
}

// settleAfterRestart drops any endpoint still Initializing to Offline
// once restartSettleGrace has elapsed without a fresh on_publish, unless
// ctx is cancelled first.
func (s *Supervisor) settleAfterRestart(ctx context.Context) {
	t := time.NewTimer(restartSettleGrace)
	defer t.Stop()
	select {
	case <-t.C:
		s.Store.SettleUnconfirmedInputEndpoints()
	case <-ctx.Done():
	}
}

// HTTPConfig builds the httpapi.Config from cfg.
func (s *Supervisor) HTTPConfig() httpapi.Config {
	return httpapi.Config{Debug: s.cfg.Debug}
}
