package container

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
)

// Status is the state of the managed GraphDB container.
type Status string

const (
	StatusRunning Status = "Running"
	StatusStopped Status = "Stopped"
	StatusMissing Status = "Missing"
)

// Info describes the managed GraphDB container.
type Info struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Image   string `json:"image"`
	Status  Status `json:"status"`
	Port    int    `json:"port"`
	URL     string `json:"url"`
	RunID   string `json:"run_id,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
	Details string `json:"details,omitempty"`
}

// DetermineStatus maps a Docker container state onto a Status.
func DetermineStatus(c *types.Container) Status {
	if c == nil {
		return StatusMissing
	}
	if c.State == "running" {
		return StatusRunning
	}
	return StatusStopped
}

// InfoFromContainer builds Info from a listing entry. now is used for uptime.
func InfoFromContainer(c *types.Container, name string, now time.Time) *Info {
	info := &Info{Name: name, Status: DetermineStatus(c)}
	if c == nil {
		return info
	}

	info.ID = shortID(c.ID)
	info.Image = c.Image
	info.RunID = c.Labels[LabelRunID]
	info.Details = c.Status
	if port, err := strconv.Atoi(c.Labels[LabelPort]); err == nil {
		info.Port = port
		info.URL = fmt.Sprintf("http://localhost:%d", port)
	}
	if info.Status == StatusRunning && c.Created > 0 {
		info.Uptime = formatUptime(now.Sub(time.Unix(c.Created, 0)))
	}
	return info
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// formatUptime renders a duration as "45s", "12m", "3h" or "2d".
func formatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// containerName strips the leading slash Docker puts on names.
func containerName(c types.Container) string {
	if len(c.Names) == 0 {
		return shortID(c.ID)
	}
	return strings.TrimPrefix(c.Names[0], "/")
}
