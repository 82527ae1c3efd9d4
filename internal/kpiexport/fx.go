package kpiexport

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/greenledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("kpi.export",
	fx.Provide(func() *Gauges {
		return NewGauges(prometheus.NewRegistry())
	}),
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

func startWorker(lc fx.Lifecycle, cfg config.Config, gauges *Gauges, pusher Pusher, log *zap.Logger) {
	if pusher == nil || gauges == nil {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("kpiexport")

	interval := cfg.KPIExport.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting kpi export worker", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				RunForever(ctx, interval, gauges, pusher, log)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// RunForever pushes once immediately and then on every tick until ctx ends.
func RunForever(ctx context.Context, interval time.Duration, gauges *Gauges, pusher Pusher, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	RunOnce(ctx, gauges, pusher, log)
	for {
		select {
		case <-ticker.C:
			RunOnce(ctx, gauges, pusher, log)
		case <-ctx.Done():
			log.Info("stopping kpi export worker")
			return
		}
	}
}

func RunOnce(ctx context.Context, gauges *Gauges, pusher Pusher, log *zap.Logger) {
	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	if err := pusher.Push(pushCtx, gauges.Registry()); err != nil {
		log.Warn("kpi export push failed", zap.Error(err))
	}
}
