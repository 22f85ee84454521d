package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ygggate/ygggate/internal/config"
	"github.com/ygggate/ygggate/internal/gateway"
	"github.com/ygggate/ygggate/internal/scheduler"
)

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Version   string               `json:"version"`
	StartTime string               `json:"startTime"`
	Uptime    string               `json:"uptime"`
	Gateway   gateway.Status       `json:"gateway"`
	Tasks     []scheduler.TaskInfo `json:"tasks"`
}

func (s *Server) getStatus(c echo.Context) error {
	resp := statusResponse{
		Version:   config.Version,
		StartTime: s.started.Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Gateway:   s.engine.Status(),
		Tasks:     []scheduler.TaskInfo{},
	}
	if s.tasks != nil {
		resp.Tasks = s.tasks.ListTasks()
	}
	return c.JSON(http.StatusOK, resp)
}
