package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fardream/restyle"
)

// exit statuses: 0 success, 2 required external tool missing or wrong
// version, 1 everything else.
const (
	exitFailure     = 1
	exitEnvironment = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var enverr *restyle.EnvironmentError
		if errors.As(err, &enverr) {
			os.Exit(exitEnvironment)
		}
		os.Exit(exitFailure)
	}
}

type rootCmd struct {
	*cobra.Command

	configPath string
	verbose    bool
}

func newRootCmd() *rootCmd {
	c := &rootCmd{
		Command: &cobra.Command{
			Use:           "restyle",
			Short:         "transplant a branch onto a new base, re-applying the code style tool to every commit",
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: false,
		},
	}

	c.PersistentFlags().StringVarP(&c.configPath, "config", "c", c.configPath, "path to the configuration")
	c.MarkPersistentFlagFilename("config")
	c.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", c.verbose, "verbose diagnostics")

	c.PersistentPreRun = func(*cobra.Command, []string) {
		level := slog.LevelInfo
		if c.verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		restyle.SetLogger(logger)
	}

	c.AddCommand(
		newRewriteCmd(c).Command,
		newVerifyCmd(c).Command,
		newBackupCmd(c).Command,
		newSessionsCmd(c).Command,
	)

	return c
}

// config loads the configuration file, or the built in defaults when none
// was given.
func (c *rootCmd) config() (*restyle.Config, error) {
	if c.configPath == "" {
		return restyle.DefaultConfig(), nil
	}

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return nil, err
	}

	return restyle.ParseConfigYAML(data)
}

// signalContext is the context every subcommand runs under.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
