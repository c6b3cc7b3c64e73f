package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"course-video-service/pkg/logger"
)

// Task งานที่ scheduler เรียก ctx ถูก cancel เมื่อ Stop
type Task func(ctx context.Context)

type JobScheduler interface {
	Start()
	Stop()
	AddJob(id, cronExpr string, task Task) error
	RemoveJob(id string) error
	ListJobs() map[string]*JobInfo
	IsRunning() bool
}

type JobInfo struct {
	ID       string
	CronExpr string
	LastRun  *time.Time
	NextRun  *time.Time
}

type jobEntry struct {
	info JobInfo
	job  *gocron.Job
}

type GocronScheduler struct {
	scheduler *gocron.Scheduler
	jobs      map[string]*jobEntry
	mu        sync.RWMutex
	running   bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewJobScheduler gocron ใน UTC, งานเดิมยังไม่จบจะไม่ถูกเรียกซ้อน
func NewJobScheduler() *GocronScheduler {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &GocronScheduler{
		scheduler: scheduler,
		jobs:      make(map[string]*jobEntry),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *GocronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.scheduler.StartAsync()
	s.running = true
	logger.Info("Job scheduler started", "jobs", len(s.jobs))
}

func (s *GocronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.scheduler.Stop()
	s.running = false
	logger.Info("Job scheduler stopped")
}

func (s *GocronScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *GocronScheduler) AddJob(id, cronExpr string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job with ID %s already exists", id)
	}

	job, err := s.scheduler.Cron(cronExpr).Do(func() {
		now := time.Now()

		s.mu.Lock()
		if entry, exists := s.jobs[id]; exists {
			entry.info.LastRun = &now
		}
		s.mu.Unlock()

		logger.Debug("Executing scheduled job", "job_id", id)
		task(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}

	s.jobs[id] = &jobEntry{
		info: JobInfo{ID: id, CronExpr: cronExpr},
		job:  job,
	}

	logger.Info("Scheduled job added", "job_id", id, "cron", cronExpr, "next_run", job.NextRun())
	return nil
}

func (s *GocronScheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job with ID %s not found", id)
	}

	s.scheduler.RemoveByReference(entry.job)
	delete(s.jobs, id)
	return nil
}

func (s *GocronScheduler) ListJobs() map[string]*JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make(map[string]*JobInfo, len(s.jobs))
	for id, entry := range s.jobs {
		info := entry.info
		if info.LastRun != nil {
			lastRun := *info.LastRun
			info.LastRun = &lastRun
		}
		nextRun := entry.job.NextRun()
		info.NextRun = &nextRun
		jobs[id] = &info
	}

	return jobs
}

// ValidateCronExpression ใช้ตรวจ config ตอน start
func ValidateCronExpression(cronExpr string) error {
	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Cron(cronExpr).Do(func() {}); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}
