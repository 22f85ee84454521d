// Package handlers holds HTTP handlers that sit beside the gateway routes.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ygggate/ygggate/internal/scheduler"
)

// SchedulerHandler exposes the background jobs.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(sched *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: sched}
}

// ListTasks returns all scheduled tasks.
// GET /tasks
func (h *SchedulerHandler) ListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.ListTasks())
}

// RunTask runs a task now and reports its outcome.
// POST /tasks/:id/run
func (h *SchedulerHandler) RunTask(c echo.Context) error {
	taskID := c.Param("id")
	err := h.scheduler.RunNow(taskID)
	switch {
	case errors.Is(err, scheduler.ErrTaskRunning):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil && !h.known(taskID):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Task completed",
		"taskId":  taskID,
	})
}

func (h *SchedulerHandler) known(taskID string) bool {
	for _, t := range h.scheduler.ListTasks() {
		if t.ID == taskID {
			return true
		}
	}
	return false
}
