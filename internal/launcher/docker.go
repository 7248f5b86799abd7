package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"robolab/internal/worldcfg"
)

const containerStopTimeout = 10 * time.Second

// containerWorld is a world running as a container. Suspend/resume never
// applies to worlds, so the handle only knows how to tear itself down.
type containerWorld struct {
	docker client.APIClient
	name   string
}

func (w *World) launchContainer(ctx context.Context, cfg worldcfg.Config) (Running, error) {
	name := "robolab-world-" + cfg.Name

	containerCfg := &container.Config{
		Image: cfg.Image,
		Env:   []string{"ROBOLAB_LAUNCH_FILE=" + cfg.LaunchFile},
	}
	hostCfg := &container.HostConfig{AutoRemove: false}

	_, err := w.docker.ContainerCreate(ctx, containerCfg, hostCfg, nil, (*ocispec.Platform)(nil), name)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("create world container: %w", err)
		}
		if err := pullImage(ctx, w.docker, cfg.Image); err != nil {
			return nil, err
		}
		if _, err = w.docker.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, name); err != nil {
			return nil, fmt.Errorf("create world container after pull: %w", err)
		}
	}

	if err := w.docker.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("start world container: %w", err)
	}

	slog.Info("World container started.", "name", name, "image", cfg.Image)
	return &containerWorld{docker: w.docker, name: name}, nil
}

// Terminate stops and removes the container. NotFound errors are ignored so
// a torn-down container does not fail best-effort cleanup.
func (c *containerWorld) Terminate() error {
	ctx, cancel := context.WithTimeout(context.Background(), containerStopTimeout)
	defer cancel()

	if err := c.docker.ContainerStop(ctx, c.name, container.StopOptions{}); err != nil {
		if !errdefs.IsNotFound(err) {
			return fmt.Errorf("stop world container %s: %w", c.name, err)
		}
	}
	if err := c.docker.ContainerRemove(ctx, c.name, container.RemoveOptions{Force: true}); err != nil {
		if !errdefs.IsNotFound(err) {
			return fmt.Errorf("remove world container %s: %w", c.name, err)
		}
	}
	return nil
}

func pullImage(ctx context.Context, docker client.APIClient, img string) error {
	slog.Info("Pulling world image.", "image", img)
	resp, err := docker.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", img, err)
	}
	defer resp.Close()
	if _, err := io.Copy(io.Discard, resp); err != nil {
		return fmt.Errorf("pull image %s: read response: %w", img, err)
	}
	return nil
}
