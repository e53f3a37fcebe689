// Package server exposes the operator surface: job triggers and
// read-only queries over HTTP, plus the cron wiring that fires the same
// jobs on a schedule.
package server

import (
	"context"
	"time"

	"github.com/jbkim/weather-batch/internal/alerts"
	"github.com/jbkim/weather-batch/internal/batch"
	"github.com/jbkim/weather-batch/internal/collection"
	"github.com/jbkim/weather-batch/internal/database"
	"github.com/jbkim/weather-batch/internal/statistics"
	"github.com/jbkim/weather-batch/pkg/config"
)

// Job names. A name plus a parameter key identifies one logical run.
const (
	JobCollection = "collectWeatherDataJob"
	JobStatistics = "generateDailyWeatherStatisticsJob"
	JobAlerts     = "generateWeatherAlertsJob"
)

// Jobs assembles and launches the three batch jobs. Handlers and cron
// entries share one instance.
type Jobs struct {
	db       *database.DB
	launcher *batch.Launcher
	fetcher  collection.Fetcher
	notifier alerts.Notifier
	guard    alerts.StateGuard
	cfg      *config.Config
	now      func() time.Time
}

func NewJobs(db *database.DB, launcher *batch.Launcher, fetcher collection.Fetcher, notifier alerts.Notifier, guard alerts.StateGuard, cfg *config.Config) *Jobs {
	return &Jobs{
		db:       db,
		launcher: launcher,
		fetcher:  fetcher,
		notifier: notifier,
		guard:    guard,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RunCollection launches the weather collection job.
func (j *Jobs) RunCollection(ctx context.Context) (*database.JobExecution, error) {
	step := collection.NewStep(j.fetcher, j.db, j.db, j.cfg.Thresholds.AbnormalTempChange)
	return j.launcher.Run(ctx, JobCollection, batch.NewRunParams(), step)
}

// RunStatistics launches the daily statistics job for one target date.
func (j *Jobs) RunStatistics(ctx context.Context, targetDate time.Time) (*database.JobExecution, error) {
	params := batch.NewRunParams()
	params["date"] = targetDate.Format("2006-01-02")

	step := statistics.NewStep(j.db, j.db, j.db, targetDate, j.cfg.Thresholds.ExpectedDailyRecords)
	return j.launcher.Run(ctx, JobStatistics, params, step)
}

// RunAlerts launches the alert job over the last day of observations.
func (j *Jobs) RunAlerts(ctx context.Context) (*database.JobExecution, error) {
	rules := alerts.NewRules(j.cfg.Thresholds)
	since := j.now().Add(-alerts.Lookback)

	step := alerts.NewStep(j.db, j.db, j.db, j.notifier, j.guard, rules, since, j.cfg.Thresholds.DedupWindow)
	return j.launcher.Run(ctx, JobAlerts, batch.NewRunParams(), step)
}
