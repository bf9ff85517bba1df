package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mamadbah2/barberdash/internal/config"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
	ctxs  chan context.Context
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	if r.ctxs != nil {
		r.ctxs <- ctx
	}
	return r.err
}

type countingPublisher struct {
	calls atomic.Int32
	err   error
}

func (p *countingPublisher) PublishToday(context.Context) error {
	p.calls.Add(1)
	return p.err
}

func testConfig() config.Config {
	return config.Config{
		Sync:      config.SyncConfig{Interval: time.Second},
		Shop:      config.ShopConfig{Timezone: "America/Sao_Paulo"},
		Store:     config.StoreConfig{Timeout: time.Second},
		Reporting: config.ReportingConfig{CronSchedule: "0 20 * * 1-6"},
	}
}

func TestSchedulerPolls(t *testing.T) {
	refresher := &countingRefresher{}
	s := NewScheduler(testConfig(), refresher, nil, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for refresher.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()

	if refresher.calls.Load() == 0 {
		t.Fatal("Refresh was never called")
	}
}

func TestSchedulerRejectsBadReportSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Reporting.CronSchedule = "every evening"
	s := NewScheduler(cfg, &countingRefresher{}, &countingPublisher{}, nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Start() error = nil, want invalid schedule error")
	}
}

func TestPollContextEndsOnStop(t *testing.T) {
	refresher := &countingRefresher{ctxs: make(chan context.Context, 1), err: errors.New("store down")}
	s := NewScheduler(testConfig(), refresher, nil, nil)

	s.poll()
	ctx := <-refresher.ctxs
	if _, ok := ctx.Deadline(); !ok {
		t.Error("poll context has no deadline")
	}

	s.Stop()
	s.poll()
	ctx = <-refresher.ctxs
	if ctx.Err() == nil {
		t.Error("poll context still live after Stop")
	}
}

func TestClosingReportJob(t *testing.T) {
	publisher := &countingPublisher{err: errors.New("sheet unavailable")}
	s := NewScheduler(testConfig(), &countingRefresher{}, publisher, nil)
	defer s.Stop()

	s.sendClosingReport()
	if got := publisher.calls.Load(); got != 1 {
		t.Errorf("PublishToday calls = %d, want 1", got)
	}
}
