package container

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Label keys put on containers managed by ingraph
const (
	LabelProject = "ingraph.project"
	LabelName    = "ingraph.container.name"
	LabelRunID   = "ingraph.container.run_id"
	LabelPort    = "ingraph.graphdb.port"
)

// BuildLabels creates the label set for a managed GraphDB container.
func BuildLabels(name, runID string, port int) map[string]string {
	return map[string]string{
		LabelProject: "true",
		LabelName:    name,
		LabelRunID:   runID,
		LabelPort:    strconv.Itoa(port),
	}
}

// GenerateRunID creates a new UUID for one `ingraph graphdb up`.
func GenerateRunID() string {
	return uuid.New().String()
}

// projectFilter matches every container ingraph manages.
func projectFilter() string {
	return fmt.Sprintf("%s=true", LabelProject)
}

// nameFilter matches the container with the given managed name.
func nameFilter(name string) string {
	return fmt.Sprintf("%s=%s", LabelName, name)
}
