package container

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

const (
	// Host port range for GraphDB containers
	StartPort = 7200
	EndPort   = 7299

	// GraphDBPort is the port GraphDB listens on inside the container.
	GraphDBPort = 7200
)

// Lister is the part of the Docker API needed to inspect managed containers.
type Lister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// portBindable is swapped in tests.
var portBindable = isPortBindable

// FindAvailablePort returns the first port in 7200-7299 that is neither
// recorded on a managed container nor bound on the host.
func FindAvailablePort(ctx context.Context, cli Lister) (int, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", projectFilter())),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query Docker containers: %w", err)
	}

	used := make(map[int]bool)
	for _, c := range containers {
		if portStr, ok := c.Labels[LabelPort]; ok {
			if port, err := strconv.Atoi(portStr); err == nil {
				used[port] = true
			}
		}
	}

	for port := StartPort; port <= EndPort; port++ {
		if used[port] {
			continue
		}
		if portBindable(port) {
			return port, nil
		}
	}

	return 0, fmt.Errorf("no available GraphDB ports (range %d-%d exhausted)", StartPort, EndPort)
}

// isPortBindable checks if a port can be bound on localhost.
func isPortBindable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
