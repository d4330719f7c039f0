package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sysyjudge/internal/app/executor"
	"sysyjudge/internal/app/producer"
	"sysyjudge/internal/config"
	"sysyjudge/internal/domain/judge"
	"sysyjudge/internal/infra/gitrev"
	"sysyjudge/internal/infra/httpapi"
	kafkainfra "sysyjudge/internal/infra/kafka"
	"sysyjudge/internal/ports"
	"sysyjudge/internal/report"
	"sysyjudge/internal/workspace"
)

const (
	exitAccepted    = 0
	exitWrongAnswer = 1
	exitFailure     = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, opts, err := loadConfig(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitAccepted
	}
	if err != nil {
		log.Printf("failed to load configuration: %v", err)
		return exitFailure
	}
	for _, warning := range cfg.Warnings() {
		log.Printf("warning: %s", warning)
	}

	logger := log.New(os.Stderr, "sysyjudge: ", log.LstdFlags)

	ws, err := workspace.New(cfg.WorkspaceDir)
	if err != nil {
		log.Printf("failed to resolve workspace: %v", err)
		return exitFailure
	}
	if err := ws.Prepare(); err != nil {
		log.Printf("failed to prepare workspace: %v", err)
		return exitFailure
	}

	runner, err := buildToolRunner(cfg)
	if err != nil {
		log.Printf("failed to initialize tool runtimes: %v", err)
		return exitFailure
	}
	defer func() {
		if cerr := runner.Close(); cerr != nil {
			log.Printf("warning: failed to close tool runtimes: %v", cerr)
		}
	}()

	cases, err := executor.NewCaseExecutor(runner, ws, executor.CaseConfig{
		Commands: cfg.Commands(),
		Backends: cfg.Backends(),
		Limits:   cfg.Limits(),
	}, logger)
	if err != nil {
		log.Printf("failed to build case executor: %v", err)
		return exitFailure
	}

	suite := executor.NewSuite(cases, executor.SuiteConfig{
		Layout:        cfg.Layout(),
		WithInput:     cfg.WithInput,
		StopOnFailure: cfg.StopOnFailure,
		Revision:      compilerRevision(cfg, logger),
	}, report.NewFileSink(cfg.ReportDir), logger)
	suite.AddObserver(report.NewConsole(os.Stdout, os.Getenv("NO_COLOR") == "", logger))

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.ResultsTopic,
		})
		if err != nil {
			log.Printf("failed to initialize kafka publisher: %v", err)
			return exitFailure
		}
		defer func() {
			if cerr := publisher.Close(); cerr != nil {
				log.Printf("warning: failed to close kafka publisher: %v", cerr)
			}
		}()
		suite.AddPublisher(publisher)
	}

	var server *httpapi.Server
	if cfg.HTTPAddr != "" {
		hub := httpapi.NewHub(logger)
		suite.AddObserver(hub)
		server = httpapi.NewServer(cfg.ReportDir, hub, logger)
		server.Start(cfg.HTTPAddr)
		logger.Printf("serving reports on %s", cfg.HTTPAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if cerr := server.Shutdown(shutdownCtx); cerr != nil {
				log.Printf("warning: failed to stop http server: %v", cerr)
			}
		}()
	}

	source, closeSource, err := requestSource(cfg, opts)
	if err != nil {
		log.Printf("failed to initialize run request source: %v", err)
		return exitFailure
	}
	defer closeSource()

	passed := true
	service := executor.NewService(suite, logger)
	if err := service.ExecuteFromProducer(ctx, source, opts.maxRequests, func(req judge.RunRequest, rep *judge.SuiteReport) {
		passed = passed && rep.Passed
	}); err != nil {
		log.Printf("failed to run suite: %v", err)
		return exitFailure
	}

	if server != nil && !opts.worker && ctx.Err() == nil {
		logger.Printf("suite finished; still serving reports until interrupted")
		<-ctx.Done()
	}

	if !passed {
		return exitWrongAnswer
	}
	return exitAccepted
}

// requestSource returns the Kafka consumer in worker mode and a single
// request for the configured range otherwise.
func requestSource(cfg config.Config, opts cliOptions) (ports.RunRequestSource, func(), error) {
	if !opts.worker {
		return producer.NewService(judge.RunRequest{ID: "cli", Low: cfg.Low, High: cfg.High}), func() {}, nil
	}

	consumer, err := kafkainfra.NewConsumer(kafkainfra.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.RequestsTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	if err != nil {
		return nil, nil, err
	}
	return consumer, func() {
		if cerr := consumer.Close(); cerr != nil {
			log.Printf("warning: failed to close kafka consumer: %v", cerr)
		}
	}, nil
}

func compilerRevision(cfg config.Config, logger *log.Logger) string {
	if cfg.CompilerRepo == "" {
		return ""
	}
	revision, err := gitrev.Head(cfg.CompilerRepo)
	if err != nil {
		logger.Printf("warning: compiler revision unavailable: %v", err)
		return ""
	}
	return revision
}
