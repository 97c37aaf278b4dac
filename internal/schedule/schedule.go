// Package schedule runs the periodic maintenance jobs (watch refresh,
// snapshot capture, nightly recompute) on cron specs from configuration.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner wraps a cron scheduler so jobs receive the process context and
// panics in one job cannot take down the others.
type Runner struct {
	cron    *cron.Cron
	log     *logrus.Logger
	baseCtx context.Context
}

func New(log *logrus.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log)))),
		log:     log,
		baseCtx: baseCtx,
	}
}

// Add registers a job under a standard 5-field cron spec or an @every
// descriptor. The name only feeds logs and errors.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
	if err != nil {
		return 0, fmt.Errorf("register %s (%q): %w", name, spec, err)
	}
	r.log.WithFields(logrus.Fields{
		"job":  name,
		"spec": spec,
	}).Info("Scheduled job registered")
	return id, nil
}

func (r *Runner) Start() {
	r.cron.Start()
	r.log.Info("Scheduler started")
}

// Stop halts scheduling and waits for any running job to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("Scheduler stopped")
}
