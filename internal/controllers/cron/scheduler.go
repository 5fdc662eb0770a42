package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultJobTimeout = 5 * time.Minute

type Job interface {
	Name() string
	Run(ctx context.Context)
}

type Scheduler struct {
	c          *cron.Cron
	ctx        context.Context
	jobTimeout time.Duration
}

// NewScheduler accepts six-field cron specs (with seconds) and descriptors such as "@every 30s".
func NewScheduler(ctx context.Context) *Scheduler {
	c := cron.New(
		cron.WithParser(cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{c: c, ctx: ctx, jobTimeout: defaultJobTimeout}
}

func (s *Scheduler) Add(spec string, job Job) (cron.EntryID, error) {
	return s.c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
		defer cancel()
		job.Run(ctx)
	})
}

func (s *Scheduler) Entries() []cron.Entry {
	return s.c.Entries()
}

func (s *Scheduler) Start() {
	s.c.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.c.Stop()
	<-ctx.Done()
}
