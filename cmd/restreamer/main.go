// Command restreamer runs the live re-streaming control plane: the state
// store, the RTMP server controller, the hook dispatcher, the reconciler,
// and the client/mix/dashboard GraphQL surfaces.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ephyr-go/restreamer/internal/config"
	"github.com/ephyr-go/restreamer/internal/hooks"
	"github.com/ephyr-go/restreamer/internal/httpapi"
	"github.com/ephyr-go/restreamer/internal/supervisor"
)

func main() {
	if handleVersion(os.Args[1:]) {
		return
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := config.BuildLogger(cfg.Debug)
	defer log.Sync()
	log = log.Named("main")

	sup, err := supervisor.New(log, cfg)
	if err != nil {
		log.Fatal("supervisor init failed", zap.Error(err))
	}

	hookRouter := gin.New()
	hookRouter.Use(gin.Recovery(), hooks.LoopbackOnly(), hooks.WithDeadline())
	sup.Hooks.Register(hookRouter)
	hookSrv := &http.Server{
		Addr:              cfg.HookAddr,
		Handler:           hookRouter,
		ReadHeaderTimeout: 2 * time.Second,
	}

	apiRouter := httpapi.NewRouter(log, sup.Store, sup.Schemas, sup.HTTPConfig())
	apiSrv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           apiRouter,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      0, // GraphQL subscriptions over websocket must not be write-timed out
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go sup.Run(ctx)

	go func() {
		log.Info("hook dispatcher listening", zap.String("addr", cfg.HookAddr))
		if err := hookSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("hook server failed", zap.Error(err))
		}
	}()
	go func() {
		log.Info("api listening", zap.String("addr", cfg.APIAddr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = hookSrv.Shutdown(shutdownCtx)

	log.Info("shutdown complete")
}

// handleVersion prints build metadata and returns true if -v/--version
// was given, so main can return without doing any real work.
func handleVersion(args []string) bool {
	fs := flag.NewFlagSet("restreamer", flag.ContinueOnError)
	fs.Usage = func() {}
	v := fs.Bool("v", false, "print version and exit")
	fs.BoolVar(v, "version", false, "print version and exit")
	_ = fs.Parse(args)

	if *v {
		fmt.Printf("restreamer %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		return true
	}
	return false
}
