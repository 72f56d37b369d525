// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

// Command compvault captures the complete input graph of resolved
// compiler invocations into a single content-addressed archive.
//
// The invocation set comes from an external resolver as a JSONC file;
// compvault reads every input the compilers consumed (sources,
// references, analyzers, resources, embedded files) and writes one
// deduplicated archive suitable for offline diagnosis and replay.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/compvault/compvault/lib/capture"
	"github.com/compvault/compvault/lib/invocation"
	"github.com/compvault/compvault/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		invocationsPath string
		outputPath      string
		configPath      string
		logLevel        string
		strict          bool
		showVersion     bool
	)
	pflag.StringVar(&invocationsPath, "invocations", "", "resolved invocation set file (JSONC, required)")
	pflag.StringVarP(&outputPath, "output", "o", "", "archive output path (required unless set in config)")
	pflag.StringVar(&configPath, "config", "", "config file path (overrides COMPVAULT_CONFIG)")
	pflag.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pflag.BoolVar(&strict, "strict", false, "exit nonzero when the capture finished with diagnostics")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("compvault %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = cfg.Output
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	if cfg.Strict {
		strict = true
	}

	if invocationsPath == "" {
		return fmt.Errorf("--invocations is required")
	}
	if outputPath == "" {
		return fmt.Errorf("--output is required (or set output in the config file)")
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}

	set, err := invocation.LoadSet(invocationsPath)
	if err != nil {
		return err
	}
	logger.Info("loaded invocation set",
		"path", invocationsPath,
		"invocations", len(set.Invocations),
		"resolver", set.Resolver)

	diagCount, err := writeArchive(logger, outputPath, set)
	if err != nil {
		return err
	}
	if strict && diagCount > 0 {
		return fmt.Errorf("capture finished with %d diagnostics", diagCount)
	}
	return nil
}

// writeArchive captures the whole set into outputPath and returns the
// diagnostic count. The output file is removed on a fatal capture
// error so a partial archive is never left looking complete.
func writeArchive(logger *slog.Logger, outputPath string, set *invocation.Set) (int, error) {
	output, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("creating archive %s: %w", outputPath, err)
	}

	diags := capture.NewDiagnosticList()
	builder := capture.NewBuilder(output, diags)
	captureErr := func() error {
		for i := range set.Invocations {
			inv := &set.Invocations[i]
			if err := builder.Add(inv); err != nil {
				return fmt.Errorf("capturing invocation %d (%s): %w", i, inv.ProjectFilePath, err)
			}
			logger.Debug("captured invocation",
				"index", i,
				"project", inv.ProjectFilePath,
				"language", inv.Language)
		}
		return builder.Close()
	}()

	if closeErr := output.Close(); closeErr != nil && captureErr == nil {
		captureErr = fmt.Errorf("closing archive %s: %w", outputPath, closeErr)
	}
	if captureErr != nil {
		os.Remove(outputPath)
		return diags.Len(), captureErr
	}

	for _, diag := range diags.Entries() {
		logger.Warn("capture diagnostic", "detail", diag)
	}
	logger.Info("archive written",
		"path", outputPath,
		"invocations", builder.InvocationCount(),
		"diagnostics", diags.Len())
	return diags.Len(), nil
}

// newLogger builds the JSON logger all compvault output goes through.
func newLogger(level string) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "", "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	}))
	slog.SetDefault(logger)
	return logger, nil
}
