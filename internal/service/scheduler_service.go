package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work. It receives a context bounded by the job timeout.
type Job func(ctx context.Context) error

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron    *cron.Cron
	timeout time.Duration
}

func NewSchedulerService(loc *time.Location, timeout time.Duration) *SchedulerService {
	cronLogger := cron.PrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		timeout: timeout,
	}
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(timeStr, name string, job Job) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, s.wrap(name, job))
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, name string, job Job) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), s.wrap(name, job))
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Entries reports how many jobs are registered.
func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) wrap(name string, job Job) func() {
	return func() {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		start := time.Now()
		if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[warn] job %s failed after %s: %v", name, time.Since(start).Round(time.Millisecond), err)
			return
		}
		log.Printf("[info] job %s finished in %s", name, time.Since(start).Round(time.Millisecond))
	}
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
