package main

import (
	"fmt"

	"sysyjudge/internal/config"
	"sysyjudge/internal/domain/judge"
	toolruntime "sysyjudge/internal/runtime"
	"sysyjudge/internal/runtime/docker"
	"sysyjudge/internal/runtime/local"
)

// buildToolRunner binds every active tool to the runtime it is configured
// for. Tools sharing a runtime share one runner instance.
func buildToolRunner(cfg config.Config) (*toolruntime.Registry, error) {
	localRunner := local.New(local.Config{Env: cfg.ToolEnv, DefaultLimits: cfg.Limits()})

	dockerTools := make(map[judge.Tool]docker.ToolConfig)
	for _, tool := range cfg.ActiveTools() {
		toolCfg := cfg.ToolConfig(tool)
		if toolCfg.Runtime == config.RuntimeDocker {
			dockerTools[tool] = docker.ToolConfig{
				Image:   toolCfg.Image,
				Workdir: toolCfg.Workdir,
				Files:   toolCfg.Files,
			}
		}
	}

	var engine *docker.Engine
	if len(dockerTools) > 0 {
		var err error
		engine, err = docker.New(docker.Config{Tools: dockerTools, DefaultLimits: cfg.Limits()})
		if err != nil {
			return nil, fmt.Errorf("initialize docker runtime: %w", err)
		}
	}

	bindings := make([]toolruntime.Binding, 0, len(cfg.ActiveTools()))
	for _, tool := range cfg.ActiveTools() {
		if _, ok := dockerTools[tool]; ok {
			bindings = append(bindings, toolruntime.Binding{Tool: tool, Runner: engine})
			continue
		}
		bindings = append(bindings, toolruntime.Binding{Tool: tool, Runner: localRunner})
	}

	registry, err := toolruntime.NewRegistry(bindings...)
	if err != nil {
		if engine != nil {
			_ = engine.Close()
		}
		return nil, err
	}
	return registry, nil
}
