package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salonpro-reminders/metrics"
	"salonpro-reminders/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Task names reported by Status.
const (
	TaskLongLead  = "long-lead-reminders"
	TaskShortLead = "short-lead-reminders"
	TaskCleanup   = "retention-cleanup"
)

// ReminderRunner dispatches one reminder type.
type ReminderRunner interface {
	Run(ctx context.Context, t models.ReminderType) (RunResult, error)
}

// CleanupRunner enforces retention.
type CleanupRunner interface {
	Run(ctx context.Context) CleanupResult
}

// ScheduleConfig holds the recurrences of the three recurring jobs.
type ScheduleConfig struct {
	LongLead   Recurrence
	ShortLead  Recurrence
	Cleanup    Recurrence
	JobTimeout time.Duration
	Location   *time.Location
}

// DefaultSchedule fires the long-lead run daily at 09:00, the short-lead run
// every 30 minutes from 08:00 to 20:00 and the cleanup on Sundays at 03:00.
func DefaultSchedule(loc *time.Location) ScheduleConfig {
	long, _ := NewDailyAt(9 * time.Hour)
	short, _ := NewInterval(30*time.Minute, 8*time.Hour, 20*time.Hour)
	cleanup, _ := NewWeeklyAt(time.Sunday, 3*time.Hour)
	return ScheduleConfig{
		LongLead:   long,
		ShortLead:  short,
		Cleanup:    cleanup,
		JobTimeout: 30 * time.Minute,
		Location:   loc,
	}
}

// ScheduleSettings is the textual form of a ScheduleConfig as it appears in
// the environment.
type ScheduleSettings struct {
	LongLeadAt     string // "09:00"
	ShortLeadEvery time.Duration
	BusinessHours  string // "08:00-20:00"
	CleanupAt      string // "sun 03:00"
	JobTimeout     time.Duration
	Location       *time.Location
}

// ParseSchedule validates settings into a ScheduleConfig.
func ParseSchedule(s ScheduleSettings) (ScheduleConfig, error) {
	long, err := ParseDaily(s.LongLeadAt)
	if err != nil {
		return ScheduleConfig{}, fmt.Errorf("long lead schedule: %w", err)
	}
	from, to, err := ParseHours(s.BusinessHours)
	if err != nil {
		return ScheduleConfig{}, fmt.Errorf("business hours: %w", err)
	}
	short, err := NewInterval(s.ShortLeadEvery, from, to)
	if err != nil {
		return ScheduleConfig{}, fmt.Errorf("short lead schedule: %w", err)
	}
	cleanup, err := ParseWeekly(s.CleanupAt)
	if err != nil {
		return ScheduleConfig{}, fmt.Errorf("cleanup schedule: %w", err)
	}
	return ScheduleConfig{
		LongLead:   long,
		ShortLead:  short,
		Cleanup:    cleanup,
		JobTimeout: s.JobTimeout,
		Location:   s.Location,
	}, nil
}

func (c ScheduleConfig) validate() error {
	if c.LongLead == nil || c.ShortLead == nil || c.Cleanup == nil {
		return fmt.Errorf("%w: every job needs a recurrence", ErrInvalidRecurrence)
	}
	return nil
}

type task struct {
	name     string
	schedule Recurrence
	job      func(ctx context.Context)
	entryID  cron.EntryID
}

// TaskStatus describes one registered trigger.
type TaskStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev,omitempty"`
}

type Status struct {
	IsRunning bool         `json:"isRunning"`
	TaskCount int          `json:"taskCount"`
	TaskNames []string     `json:"taskNames"`
	Tasks     []TaskStatus `json:"tasks"`
}

// Scheduler owns the recurring reminder and cleanup triggers. It starts in
// the stopped state.
type Scheduler struct {
	mu sync.Mutex

	cfg        ScheduleConfig
	dispatcher ReminderRunner
	cleaner    CleanupRunner
	metrics    *metrics.Metrics
	log        logrus.FieldLogger

	cron  *cron.Cron
	tasks []task
}

func NewScheduler(cfg ScheduleConfig, dispatcher ReminderRunner, cleaner CleanupRunner, m *metrics.Metrics, log logrus.FieldLogger) (*Scheduler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	return &Scheduler{
		cfg:        cfg,
		dispatcher: dispatcher,
		cleaner:    cleaner,
		metrics:    m,
		log:        log.WithField("component", "scheduler"),
	}, nil
}

// Start registers the recurring triggers. It returns false, and logs a
// warning, when the scheduler is already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

// Stop cancels future firings. Runs already in progress finish on their own.
// It returns false, and logs a warning, when the scheduler is already stopped.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

// Restart replaces every trigger, picking up the current configuration.
func (s *Scheduler) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.stopLocked()
	}
	s.startLocked()
}

// Reconfigure swaps the schedule and restarts the triggers if running.
func (s *Scheduler) Reconfigure(cfg ScheduleConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Location == nil {
		cfg.Location = s.cfg.Location
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = s.cfg.JobTimeout
	}
	s.cfg = cfg
	if s.cron != nil {
		s.stopLocked()
		s.startLocked()
	}
	return nil
}

func (s *Scheduler) startLocked() bool {
	if s.cron != nil {
		s.log.Warn("scheduler is already running")
		return false
	}

	c := cron.New(cron.WithLocation(s.cfg.Location), cron.WithLogger(cronLogger{s.log}))
	tasks := []task{
		{name: TaskLongLead, schedule: s.cfg.LongLead, job: s.reminderJob(models.ReminderLongLead)},
		{name: TaskShortLead, schedule: s.cfg.ShortLead, job: s.reminderJob(models.ReminderShortLead)},
		{name: TaskCleanup, schedule: s.cfg.Cleanup, job: s.cleanupJob},
	}
	for i := range tasks {
		tasks[i].entryID = c.Schedule(tasks[i].schedule, cron.FuncJob(s.guard(tasks[i])))
	}
	c.Start()

	s.cron = c
	s.tasks = tasks
	s.log.WithFields(logrus.Fields{"tasks": len(tasks), "tz": s.cfg.Location.String()}).Info("scheduler started")
	return true
}

func (s *Scheduler) stopLocked() bool {
	if s.cron == nil {
		s.log.Warn("scheduler is already stopped")
		return false
	}
	// not waiting on the returned context: in-flight runs are left to complete
	s.cron.Stop()
	s.cron = nil
	s.tasks = nil
	s.log.Info("scheduler stopped")
	return true
}

// TriggerManual runs one reminder type now, outside the schedule. It works in
// both states.
func (s *Scheduler) TriggerManual(ctx context.Context, t models.ReminderType) (RunResult, error) {
	if _, ok := leadBands[t]; !ok {
		return RunResult{}, fmt.Errorf("%w: %s", ErrUnknownReminderType, t)
	}
	s.log.WithField("reminder_type", t).Info("manual reminder run triggered")
	defer s.observe(taskFor(t), time.Now())
	return s.dispatcher.Run(ctx, t)
}

// TriggerCleanup runs the retention job now.
func (s *Scheduler) TriggerCleanup(ctx context.Context) CleanupResult {
	s.log.Info("manual cleanup triggered")
	defer s.observe(TaskCleanup, time.Now())
	return s.cleaner.Run(ctx)
}

func taskFor(t models.ReminderType) string {
	if t == models.ReminderShortLead {
		return TaskShortLead
	}
	return TaskLongLead
}

// observe records a job duration under its task name.
func (s *Scheduler) observe(name string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RunDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// Status is pure introspection.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		IsRunning: s.cron != nil,
		TaskCount: len(s.tasks),
		TaskNames: make([]string, 0, len(s.tasks)),
		Tasks:     make([]TaskStatus, 0, len(s.tasks)),
	}
	for _, t := range s.tasks {
		e := s.cron.Entry(t.entryID)
		st.TaskNames = append(st.TaskNames, t.name)
		st.Tasks = append(st.Tasks, TaskStatus{
			Name:     t.name,
			Schedule: t.schedule.String(),
			Next:     e.Next,
			Prev:     e.Prev,
		})
	}
	return st
}

func (s *Scheduler) reminderJob(t models.ReminderType) func(ctx context.Context) {
	return func(ctx context.Context) {
		res, err := s.dispatcher.Run(ctx, t)
		if err != nil {
			s.log.WithError(err).WithField("reminder_type", t).Error("scheduled reminder run failed")
			return
		}
		s.log.WithFields(logrus.Fields{
			"reminder_type": t,
			"sent":          res.Sent,
			"skipped":       res.Skipped,
			"failed":        res.Failed,
		}).Info("scheduled reminder run completed")
	}
}

func (s *Scheduler) cleanupJob(ctx context.Context) {
	s.cleaner.Run(ctx)
}

// guard wraps a job so a failing cycle is logged and the trigger stays registered.
func (s *Scheduler) guard(t task) func() {
	timeout := s.cfg.JobTimeout
	return func() {
		start := time.Now()
		log := s.log.WithField("job", t.name)
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("scheduled job panicked")
			}
			s.observe(t.name, start)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		log.Debug("scheduled job firing")
		t.job(ctx)
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(kvFields(keysAndValues)).Error("cron: " + msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
