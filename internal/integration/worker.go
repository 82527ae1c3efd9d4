package integration

import (
	"context"
	"time"

	"github.com/smallbiznis/greenledger/internal/cache"
	"github.com/smallbiznis/greenledger/internal/config"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const syncLockKey = "greenledger:lock:integration-sync"

type workerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	Svc       integrationdomain.Service
	Log       *zap.Logger
	Locker    *cache.Locker `optional:"true"`
}

func startWorker(p workerParams) {
	if !p.Cfg.Integrations.WorkerEnabled {
		return
	}
	log := p.Log.Named("integration.worker")

	interval := p.Cfg.Integrations.PollInterval
	if interval <= 0 {
		interval = time.Hour
	}
	worker := &Worker{svc: p.Svc, locker: p.Locker, log: log, lease: interval}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting integration sync worker", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				worker.RunForever(ctx, interval)
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

// Worker runs periodic sync passes. With a locker only one replica runs a
// pass per lease.
type Worker struct {
	svc    integrationdomain.Service
	locker *cache.Locker
	log    *zap.Logger
	lease  time.Duration
}

func NewWorker(svc integrationdomain.Service, locker *cache.Locker, lease time.Duration, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{svc: svc, locker: locker, log: log, lease: lease}
}

// RunForever syncs all enabled connections on every tick until ctx ends.
func (w *Worker) RunForever(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-ctx.Done():
			w.log.Info("stopping integration sync worker")
			return
		}
	}
}

// RunOnce runs a single pass and reports whether this replica ran it.
func (w *Worker) RunOnce(ctx context.Context) bool {
	if w.locker != nil && w.lease > 0 {
		// The lease is left to expire so other replicas skip the rest of
		// the interval.
		_, ok, err := w.locker.TryLock(ctx, syncLockKey, w.lease)
		if err != nil {
			w.log.Warn("integration sync lock failed", zap.Error(err))
			return false
		}
		if !ok {
			w.log.Debug("integration sync pass held by another replica")
			return false
		}
	}

	started := time.Now()
	succeeded, err := w.svc.SyncAll(ctx)
	if err != nil {
		w.log.Warn("integration sync pass failed", zap.Error(err))
		return true
	}
	w.log.Info("integration sync pass finished",
		zap.Int("succeeded", succeeded),
		zap.Duration("duration", time.Since(started)),
	)
	return true
}
