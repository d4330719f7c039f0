package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"sysyjudge/internal/config"
)

type cliOptions struct {
	worker      bool
	maxRequests int
}

type flagValues struct {
	configPath    string
	low           int
	high          int
	fixtures      string
	inputs        string
	outputs       string
	workspace     string
	reports       string
	withInput     bool
	mars          bool
	llvm          bool
	timeout       time.Duration
	stopOnFailure bool
	serve         string
	worker        bool
}

// loadConfig layers the configuration: defaults, then the YAML file, then
// environment variables, then explicitly set flags.
func loadConfig(args []string, stderr io.Writer) (config.Config, cliOptions, error) {
	defaults := config.Default()
	var values flagValues

	fs := flag.NewFlagSet("sysyjudge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&values.configPath, "config", os.Getenv("SYSYJUDGE_CONFIG"), "path to a YAML configuration file")
	fs.IntVar(&values.low, "lo", defaults.Low, "first test id (inclusive)")
	fs.IntVar(&values.high, "hi", defaults.High, "last test id (inclusive)")
	fs.StringVar(&values.fixtures, "fixtures", defaults.FixtureDir, "directory holding testfile{id}.txt")
	fs.StringVar(&values.inputs, "inputs", defaults.InputDir, "directory holding input{id}.txt")
	fs.StringVar(&values.outputs, "outputs", defaults.OutputDir, "directory holding output{id}.txt")
	fs.StringVar(&values.workspace, "workspace", defaults.WorkspaceDir, "intermediate directory cases are staged into")
	fs.StringVar(&values.reports, "reports", defaults.ReportDir, "directory reports are written to")
	fs.BoolVar(&values.withInput, "input", defaults.WithInput, "feed input{id}.txt to the program")
	fs.BoolVar(&values.mars, "mars", defaults.RunMARS, "run the MIPS output through MARS")
	fs.BoolVar(&values.llvm, "llvm", defaults.RunLLVM, "run the LLVM IR through lli")
	fs.DurationVar(&values.timeout, "timeout", defaults.Timeout, "per tool timeout, 0 for none")
	fs.BoolVar(&values.stopOnFailure, "stop-on-failure", defaults.StopOnFailure, "stop at the first rejected case")
	fs.StringVar(&values.serve, "serve", defaults.HTTPAddr, "serve reports and live progress on this address")
	fs.BoolVar(&values.worker, "worker", false, "consume run requests from Kafka instead of running once")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return config.Config{}, cliOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := defaults
	if values.configPath != "" {
		loaded, err := config.Load(values.configPath)
		if err != nil {
			return config.Config{}, cliOptions{}, err
		}
		cfg = loaded
	}
	cfg = applyEnv(cfg)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lo":
			cfg.Low = values.low
		case "hi":
			cfg.High = values.high
		case "fixtures":
			cfg.FixtureDir = values.fixtures
		case "inputs":
			cfg.InputDir = values.inputs
		case "outputs":
			cfg.OutputDir = values.outputs
		case "workspace":
			cfg.WorkspaceDir = values.workspace
		case "reports":
			cfg.ReportDir = values.reports
		case "input":
			cfg.WithInput = values.withInput
		case "mars":
			cfg.RunMARS = values.mars
		case "llvm":
			cfg.RunLLVM = values.llvm
		case "timeout":
			cfg.Timeout = values.timeout
		case "stop-on-failure":
			cfg.StopOnFailure = values.stopOnFailure
		case "serve":
			cfg.HTTPAddr = values.serve
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, cliOptions{}, fmt.Errorf("invalid configuration: %w", err)
	}

	opts := cliOptions{
		worker:      values.worker,
		maxRequests: parseMaxRequests(os.Getenv("SYSYJUDGE_MAX_REQUESTS")),
	}
	if opts.worker && len(cfg.Kafka.Brokers) == 0 {
		return config.Config{}, cliOptions{}, fmt.Errorf("worker mode requires KAFKA_BROKERS or kafka.brokers")
	}
	return cfg, opts, nil
}

func applyEnv(cfg config.Config) config.Config {
	cfg.Low = parseInt(os.Getenv("SYSYJUDGE_LOW"), cfg.Low)
	cfg.High = parseInt(os.Getenv("SYSYJUDGE_HIGH"), cfg.High)
	cfg.FixtureDir = envOrDefault("SYSYJUDGE_FIXTURES", cfg.FixtureDir)
	cfg.InputDir = envOrDefault("SYSYJUDGE_INPUTS", cfg.InputDir)
	cfg.OutputDir = envOrDefault("SYSYJUDGE_OUTPUTS", cfg.OutputDir)
	cfg.WorkspaceDir = envOrDefault("SYSYJUDGE_WORKSPACE", cfg.WorkspaceDir)
	cfg.ReportDir = envOrDefault("SYSYJUDGE_REPORTS", cfg.ReportDir)
	cfg.WithInput = parseBool(os.Getenv("SYSYJUDGE_INPUT"), cfg.WithInput)
	cfg.RunMARS = parseBool(os.Getenv("SYSYJUDGE_MARS"), cfg.RunMARS)
	cfg.RunLLVM = parseBool(os.Getenv("SYSYJUDGE_LLVM"), cfg.RunLLVM)
	cfg.Timeout = parseDuration(os.Getenv("SYSYJUDGE_TIMEOUT"), cfg.Timeout)
	cfg.MemoryLimitBytes = parseBytes(os.Getenv("SYSYJUDGE_MEMORY_LIMIT"), cfg.MemoryLimitBytes)
	cfg.CompilerRepo = envOrDefault("SYSYJUDGE_COMPILER_REPO", cfg.CompilerRepo)
	cfg.HTTPAddr = envOrDefault("SYSYJUDGE_HTTP_ADDR", cfg.HTTPAddr)

	cfg.Tools.Compiler.Image = envOrDefault("SYSYJUDGE_COMPILER_IMAGE", cfg.Tools.Compiler.Image)
	cfg.Tools.MARS.Image = envOrDefault("SYSYJUDGE_MARS_IMAGE", cfg.Tools.MARS.Image)
	cfg.Tools.LLVM.Image = envOrDefault("SYSYJUDGE_LLVM_IMAGE", cfg.Tools.LLVM.Image)
	if runtime := os.Getenv("SYSYJUDGE_RUNTIME"); runtime != "" {
		cfg.Tools.Compiler.Runtime = runtime
		cfg.Tools.MARS.Runtime = runtime
		cfg.Tools.LLVM.Runtime = runtime
	}

	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		cfg.Kafka.Brokers = parseBrokerList(raw)
	}
	cfg.Kafka.ResultsTopic = envOrDefault("KAFKA_RESULTS_TOPIC", cfg.Kafka.ResultsTopic)
	cfg.Kafka.RequestsTopic = envOrDefault("KAFKA_TOPIC", cfg.Kafka.RequestsTopic)
	cfg.Kafka.GroupID = envOrDefault("KAFKA_GROUP_ID", cfg.Kafka.GroupID)
	return cfg
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseBrokerList(raw string) []string {
	fields := strings.Split(raw, ",")
	brokers := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func parseMaxRequests(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func parseBytes(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
