package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	typesimage "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"sysyjudge/internal/domain/judge"
)

type containerEngine struct {
	cli           dockerClient
	defaultLimits judge.RunLimits
}

// program is a single container run: the command, the archive copied into
// the workdir beforehand and the workdir files collected afterwards.
type program struct {
	command []string
	archive io.Reader
	stdin   []byte
	collect []string
}

func newContainerEngine(cli dockerClient, defaultLimits judge.RunLimits) *containerEngine {
	return &containerEngine{
		cli:           cli,
		defaultLimits: defaultLimits.Normalize(),
	}
}

func (c *containerEngine) pullImage(ctx context.Context, ref string) error {
	reader, err := c.cli.ImagePull(ctx, ref, typesimage.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	if err != nil {
		return fmt.Errorf("consume pull output for %s: %w", ref, err)
	}
	return nil
}

func (c *containerEngine) effectiveLimits(request judge.RunLimits) judge.RunLimits {
	return c.defaultLimits.Merge(request)
}

// runProgram runs prog to completion inside a fresh container. A program
// that outlives its timeout is stopped and reported as timed out with the
// output it produced; nothing is collected from it. Collected files are
// returned keyed by name.
func (c *containerEngine) runProgram(ctx context.Context, runtime *toolRuntime, limits judge.RunLimits, prog program) (*judge.ToolResult, map[string][]byte, error) {
	effectiveLimits := c.effectiveLimits(limits)

	containerID, cleanup, err := c.createContainer(ctx, runtime, effectiveLimits, prog.command)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	if err := c.copyIn(ctx, containerID, runtime.config.Workdir, prog.archive); err != nil {
		return nil, nil, fmt.Errorf("copy files: %w", err)
	}

	start, err := c.startWithStdin(ctx, containerID, prog.stdin)
	if err != nil {
		return nil, nil, err
	}

	status, timedOut, err := c.await(ctx, containerID, effectiveLimits.Timeout)
	if err != nil {
		return nil, nil, err
	}
	elapsed := time.Since(start)

	stdout, stderr, err := c.fetchLogs(ctx, containerID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch logs: %w", err)
	}

	result := &judge.ToolResult{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: -1,
		Duration: elapsed,
		TimedOut: timedOut,
	}
	if status != nil {
		result.ExitCode = status.StatusCode
	}
	if timedOut {
		return result, nil, nil
	}

	inspect, err := c.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect container: %w", err)
	}
	result.Duration = containerDuration(inspect, elapsed)

	collected, err := c.collectOutputs(ctx, containerID, runtime.config.Workdir, prog.collect)
	if err != nil {
		return nil, nil, err
	}
	return result, collected, nil
}

// startWithStdin attaches, starts the container and writes stdin, closing
// the write side so the program sees EOF.
func (c *containerEngine) startWithStdin(ctx context.Context, containerID string, stdin []byte) (time.Time, error) {
	attach, err := c.cli.ContainerAttach(ctx, containerID, container.AttachOptions{
		Stream: true,
		Stdin:  true,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("attach container: %w", err)
	}
	defer attach.Close()

	start := time.Now()
	if err := c.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return time.Time{}, fmt.Errorf("start container: %w", err)
	}

	if attach.Conn != nil {
		if _, err := attach.Conn.Write(stdin); err != nil {
			return time.Time{}, fmt.Errorf("write stdin: %w", err)
		}
		if closer, ok := attach.Conn.(interface{ CloseWrite() error }); ok {
			_ = closer.CloseWrite()
		}
	}
	return start, nil
}

// await waits for the container to exit. With a positive timeout a program
// still running at the deadline is stopped; timedOut is then true and status
// is whatever the daemon reported after the stop, or nil.
func (c *containerEngine) await(ctx context.Context, containerID string, timeout time.Duration) (status *container.WaitResponse, timedOut bool, err error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	status, err = c.waitForExit(waitCtx, containerID)
	if err == nil {
		return status, false, nil
	}
	if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return nil, false, err
	}

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancelStop()
	if err := c.cli.ContainerStop(stopCtx, containerID, container.StopOptions{}); err != nil && !client.IsErrNotFound(err) {
		return nil, true, fmt.Errorf("stop container after timeout: %w", err)
	}

	exitCtx, cancelExit := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancelExit()
	status, err = c.waitForExit(exitCtx, containerID)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !client.IsErrNotFound(err) {
		return nil, true, fmt.Errorf("wait for container after timeout: %w", err)
	}
	return status, true, nil
}

func (c *containerEngine) waitForExit(ctx context.Context, containerID string) (*container.WaitResponse, error) {
	statusCh, errCh := c.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-errCh:
			if err == nil {
				errCh = nil
				continue
			}
			return nil, fmt.Errorf("wait for %s: %w", containerID, err)
		case status := <-statusCh:
			if status.Error != nil && status.Error.Message != "" {
				return nil, fmt.Errorf("wait for %s: %s", containerID, status.Error.Message)
			}
			return &status, nil
		}
	}
}

// fetchLogs demultiplexes the container's combined log stream.
func (c *containerEngine) fetchLogs(ctx context.Context, containerID string) (string, string, error) {
	logs, err := c.cli.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", err
	}
	defer logs.Close()

	var stdout, stderr strings.Builder
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return "", "", err
	}
	return stdout.String(), stderr.String(), nil
}

func (c *containerEngine) createContainer(ctx context.Context, runtime *toolRuntime, limits judge.RunLimits, cmd []string) (string, func(), error) {
	hostConfig := &container.HostConfig{
		Resources: container.Resources{
			NanoCPUs: 1_000_000_000,
		},
	}
	if limits.MemoryLimitBytes > 0 {
		hostConfig.Resources.Memory = limits.MemoryLimitBytes
		hostConfig.Resources.MemorySwap = limits.MemoryLimitBytes
	}

	resp, err := c.cli.ContainerCreate(
		ctx,
		&container.Config{
			Image:        runtime.config.Image,
			Cmd:          cmd,
			AttachStdout: true,
			AttachStderr: true,
			AttachStdin:  true,
			OpenStdin:    true,
			StdinOnce:    true,
			WorkingDir:   runtime.config.Workdir,
		},
		hostConfig,
		nil,
		nil,
		"",
	)
	if err != nil {
		return "", nil, fmt.Errorf("create container: %w", err)
	}

	cleanup := func() {
		_ = c.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})
	}

	return resp.ID, cleanup, nil
}

// containerDuration prefers the daemon's own start and finish timestamps and
// falls back to the wall clock measured by the harness.
func containerDuration(inspect types.ContainerJSON, fallback time.Duration) time.Duration {
	if inspect.ContainerJSONBase == nil || inspect.State == nil {
		return fallback
	}
	started, err := dateparse.ParseAny(inspect.State.StartedAt)
	if err != nil {
		return fallback
	}
	finished, err := dateparse.ParseAny(inspect.State.FinishedAt)
	if err != nil {
		return fallback
	}
	if elapsed := finished.Sub(started); elapsed > 0 {
		return elapsed
	}
	return fallback
}
