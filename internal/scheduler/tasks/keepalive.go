// Package tasks binds gateway operations to scheduler jobs.
package tasks

import (
	"context"
	"time"

	"github.com/ygggate/ygggate/internal/scheduler"
)

const (
	SessionKeepaliveTaskID = "session-keepalive"
	CategoryRefreshTaskID  = "category-refresh"
)

// SessionProber checks the shared session and renews it when expired.
type SessionProber interface {
	Probe(ctx context.Context) error
}

// RegisterSessionKeepaliveTask probes the shared session on cron so an
// expired session is renewed before a client request hits it.
func RegisterSessionKeepaliveTask(sched *scheduler.Scheduler, cron string, prober SessionProber) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          SessionKeepaliveTaskID,
		Name:        "Session Keepalive",
		Description: "Probes the shared origin session and renews it when expired",
		Cron:        cron,
		Timeout:     2 * time.Minute,
		Func:        prober.Probe,
	})
}

// CategoryRefresher re-reads the category taxonomy from the origin.
type CategoryRefresher interface {
	RefreshCategories(ctx context.Context) error
}

// RegisterCategoryRefreshTask refreshes the taxonomy once a day.
func RegisterCategoryRefreshTask(sched *scheduler.Scheduler, refresher CategoryRefresher) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CategoryRefreshTaskID,
		Name:        "Category Refresh",
		Description: "Scrapes the origin's category taxonomy and persists it",
		Cron:        "15 4 * * *",
		Timeout:     2 * time.Minute,
		Func:        refresher.RefreshCategories,
	})
}
