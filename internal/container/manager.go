// Package container runs a local GraphDB in Docker for development.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// ErrNotFound is returned when no managed container has the configured name.
var ErrNotFound = errors.New("graphdb container not found")

// Options configures the managed container.
type Options struct {
	Image string
	Name  string
	Port  int    // host port; 0 picks one from 7200-7299
	Heap  string // GDB_HEAP_SIZE, e.g. "2g"

	// Notify receives progress lines. May be nil.
	Notify func(format string, args ...any)
}

// Manager creates, inspects and removes the managed GraphDB container.
type Manager struct {
	cli  *client.Client
	opts Options
}

// NewClient creates a Docker client and validates the daemon is accessible.
func NewClient(ctx context.Context) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf(`Docker daemon not accessible: %w

Ensure Docker is running:
  • macOS: Docker Desktop
  • Linux: sudo systemctl start docker`, err)
	}

	return cli, nil
}

// NewManager wraps a Docker client.
func NewManager(cli *client.Client, opts Options) *Manager {
	if opts.Notify == nil {
		opts.Notify = func(string, ...any) {}
	}
	return &Manager{cli: cli, opts: opts}
}

// find returns the managed container with the configured name, or nil.
func (m *Manager) find(ctx context.Context) (*types.Container, error) {
	containers, err := m.cli.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", projectFilter()),
			filters.Arg("label", nameFilter(m.opts.Name)),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return nil, nil
	}
	return &containers[0], nil
}

// Status reports the managed container. Returns ErrNotFound if absent.
func (m *Manager) Status(ctx context.Context) (*Info, error) {
	c, err := m.find(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return InfoFromContainer(nil, m.opts.Name, time.Now()), ErrNotFound
	}
	return InfoFromContainer(c, m.opts.Name, time.Now()), nil
}

// Up makes sure the container exists and is running. An existing stopped
// container is restarted rather than recreated.
func (m *Manager) Up(ctx context.Context) (*Info, error) {
	existing, err := m.find(ctx)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.State == "running" {
			m.opts.Notify("Container %s already running\n", m.opts.Name)
			return InfoFromContainer(existing, m.opts.Name, time.Now()), nil
		}
		m.opts.Notify("Starting existing container %s...\n", m.opts.Name)
		if err := m.cli.ContainerStart(ctx, existing.ID, container.StartOptions{}); err != nil {
			return nil, fmt.Errorf("failed to start container '%s': %w", m.opts.Name, err)
		}
		return m.Status(ctx)
	}

	port := m.opts.Port
	if port == 0 {
		port, err = FindAvailablePort(ctx, m.cli)
		if err != nil {
			return nil, err
		}
	}

	if err := m.pullIfNeeded(ctx); err != nil {
		return nil, err
	}

	containerPort := nat.Port(fmt.Sprintf("%d/tcp", GraphDBPort))
	var env []string
	if m.opts.Heap != "" {
		env = append(env, "GDB_HEAP_SIZE="+m.opts.Heap)
	}

	resp, err := m.cli.ContainerCreate(ctx, &container.Config{
		Image:        m.opts.Image,
		Labels:       BuildLabels(m.opts.Name, GenerateRunID(), port),
		Env:          env,
		ExposedPorts: nat.PortSet{containerPort: struct{}{}},
	}, &container.HostConfig{
		PortBindings: nat.PortMap{
			containerPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: strconv.Itoa(port)}},
		},
	}, nil, nil, m.opts.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphDB container: %w", err)
	}

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = m.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start GraphDB container: %w", err)
	}
	m.opts.Notify("Started container %s (port %d)\n", m.opts.Name, port)

	return m.Status(ctx)
}

// Down stops and removes the managed container. Volumes are removed too.
func (m *Manager) Down(ctx context.Context) error {
	c, err := m.find(ctx)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}

	name := containerName(*c)
	timeout := 10
	m.opts.Notify("Stopping %s...\n", name)
	if err := m.cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
		// Already stopped containers are removed below anyway
		m.opts.Notify("failed to stop %s: %v\n", name, err)
	}

	m.opts.Notify("Removing %s...\n", name)
	if err := m.cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

func (m *Manager) pullIfNeeded(ctx context.Context) error {
	if _, _, err := m.cli.ImageInspectWithRaw(ctx, m.opts.Image); err == nil {
		return nil
	}

	m.opts.Notify("Pulling image %s...\n", m.opts.Image)
	reader, err := m.cli.ImagePull(ctx, m.opts.Image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", m.opts.Image, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to complete image pull %s: %w", m.opts.Image, err)
	}
	return nil
}

// WaitHealthy polls check every interval until it succeeds, ctx ends or
// timeout elapses. The last check error is included on timeout.
func WaitHealthy(ctx context.Context, check func(context.Context) error, interval, timeout time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)
	var lastErr error

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timeoutCh:
			if lastErr != nil {
				return fmt.Errorf("timeout waiting for GraphDB after %v: %w", timeout, lastErr)
			}
			return fmt.Errorf("timeout waiting for GraphDB after %v", timeout)

		case <-ticker.C:
			if lastErr = check(ctx); lastErr == nil {
				return nil
			}
		}
	}
}
