package docker

import (
	"context"
	"fmt"
	"sync"

	"sysyjudge/internal/domain/judge"
)

type toolRuntime struct {
	tool   judge.Tool
	config ToolConfig
	engine *containerEngine

	pullOnce sync.Once
	pullErr  error
}

func newToolRuntime(tool judge.Tool, cfg ToolConfig, engine *containerEngine) (*toolRuntime, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("docker runtime: tool %q missing image configuration", tool)
	}
	if cfg.Workdir == "" {
		cfg.Workdir = "/tmp"
	}
	return &toolRuntime{
		tool:   tool,
		config: cfg,
		engine: engine,
	}, nil
}

func (t *toolRuntime) ensureImage(ctx context.Context) error {
	t.pullOnce.Do(func() {
		t.pullErr = t.engine.pullImage(ctx, t.config.Image)
	})
	return t.pullErr
}
