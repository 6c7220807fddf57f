package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/config"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/server"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/output"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/validation"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"error\": %q}\n", err.Error())
		os.Exit(1)
	}
}

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:    "viverdebitcoin",
		Usage:   "bitcoin regret, DCA, retirement and projection calculators",
		Version: version,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: constants.DefaultConfigFile, Usage: "path to configuration file"},
			&cli.StringFlag{Name: "output-format", Usage: "type of output override: pretty, csv, json, xlsx"},
			&cli.StringFlag{Name: "log-level", Usage: "log level override (debug, info, warn, error)"},
			&cli.StringSliceFlag{Name: "env-file", Value: cli.NewStringSlice(".env"), Usage: "dotenv files loaded before the configuration"},
		},
		Action: runCommand,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the active calculations and print the results",
				Action: runCommand,
			},
			{
				Name:  "serve",
				Usage: "serve the calculator HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server-config", Value: constants.DefaultServerConfigFile, Usage: "path to server configuration file"},
					&cli.StringFlag{Name: "address", Usage: "listen address override"},
				},
				Action: serveCommand,
			},
			{
				Name:   "price",
				Usage:  "refresh and print the present-day BTC quotes",
				Action: priceCommand,
			},
			{
				Name:   "validate",
				Usage:  "validate the configuration and print warnings",
				Action: validateCommand,
			},
		},
	}
}

// setup loads the environment, configuration and logger shared by every command.
func setup(c *cli.Context, logging func(*config.Configuration) config.LoggingConfig) (*config.Configuration, *zap.Logger, error) {
	if err := config.LoadEnv(c.StringSlice("env-file")...); err != nil {
		return nil, nil, err
	}

	configLocation := c.String("config")
	conf, err := config.LoadConfiguration(configLocation)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration at %s (see %s): %w", configLocation, constants.ExampleConfigFile, err)
	}

	loggingConfig := conf.Logging
	if logging != nil {
		loggingConfig = logging(conf)
	}
	logger, err := initializeLogger(loggingConfig, c.String("log-level"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Validate configuration and display any warnings
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}
	return conf, logger, nil
}

func runCommand(c *cli.Context) error {
	conf, logger, err := setup(c, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if f := c.String("output-format"); f != "" {
		outputFormat = f
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	rt, err := buildRuntime(c.Context, logger, conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to release resources", zap.String("op", "main.run"), zap.Error(err))
		}
	}()
	rt.refreshOnce()

	results, err := rt.engine.RunAll(conf.Calculations)
	if err != nil {
		return fmt.Errorf("failed to run calculations: %w", err)
	}
	logger.Info("calculations complete",
		zap.String("op", "main.run"),
		zap.Int("results", len(results)),
	)

	if outputFormat != constants.OutputFormatXLSX {
		return output.Write(c.App.Writer, outputFormat, results)
	}

	f, err := os.Create(conf.Output.File)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", conf.Output.File, err)
	}
	if err := output.XLSXFormat(f, results); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", conf.Output.File, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.App.Writer, "wrote %d results to %s\n", len(results), conf.Output.File)
	return nil
}

func serveCommand(c *cli.Context) error {
	serverConfig, err := server.LoadConfig(c.String("server-config"))
	if err != nil {
		return err
	}
	if addr := c.String("address"); addr != "" {
		serverConfig.Address = addr
	}

	conf, logger, err := setup(c, func(conf *config.Configuration) config.LoggingConfig {
		if serverConfig.Logging != (config.LoggingConfig{}) {
			return serverConfig.Logging
		}
		return conf.Logging
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	rt, err := buildRuntime(c.Context, logger, conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to release resources", zap.String("op", "main.serve"), zap.Error(err))
		}
	}()
	if rt.refresher != nil {
		rt.refresher.Start()
		defer rt.refresher.Stop()
	}

	srv := &http.Server{
		Addr:              serverConfig.Address,
		Handler:           server.NewHandler(logger, rt.engine, *serverConfig, version),
		ReadHeaderTimeout: serverConfig.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("op", "main.serve"),
			zap.String("address", serverConfig.Address),
			zap.Int64("maxUploadSize", serverConfig.UploadSizeBytes()),
			zap.Int("maxCalculations", serverConfig.MaxCalculations),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down server", zap.String("op", "main.serve"))
	return srv.Shutdown(shutdownCtx)
}

func priceCommand(c *cli.Context) error {
	conf, logger, err := setup(c, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	rt, err := buildRuntime(c.Context, logger, conf)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	rt.refreshOnce()

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(rt.engine.LivePrices())
}

func validateCommand(c *cli.Context) error {
	if err := config.LoadEnv(c.StringSlice("env-file")...); err != nil {
		return err
	}
	conf, err := config.LoadConfiguration(c.String("config"))
	if err != nil {
		return err
	}
	warnings := conf.ValidateConfiguration()
	for _, w := range warnings {
		_, _ = fmt.Fprintf(c.App.Writer, "warning: %s\n", w)
	}
	if len(warnings) > 0 {
		return cli.Exit(fmt.Sprintf("%d configuration warnings", len(warnings)), 1)
	}
	_, _ = fmt.Fprintln(c.App.Writer, "configuration OK")
	return nil
}
