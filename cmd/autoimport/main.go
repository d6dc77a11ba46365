// # cmd/autoimport/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"autoimport/internal/core/app"
	"autoimport/internal/core/config"

	"github.com/spf13/cobra"
)

const VERSION = "1.0.0"

const defaultConfigPath = "./autoimport.toml"

// cli holds the state shared by every command.
type cli struct {
	configPath string
	root       string
	verbose    bool

	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	cfgFile  string
	logger   *slog.Logger
	rootPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "autoimport",
		Short:         "Index TypeScript declarations and manage import statements",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       VERSION,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&c.configPath, "config", defaultConfigPath, "Path to config file")
	root.PersistentFlags().StringVar(&c.root, "root", "", "Workspace root (detected from the working directory when empty)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newIndexCmd(c),
		newOrganizeCmd(c),
		newAddCmd(c),
		newWatchCmd(c),
	)

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n%s", err, cmd.UsageString())
	})
	return root
}

func (c *cli) setup() error {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)

	cfg, err := config.Load(c.configPath)
	switch {
	case err == nil:
		c.cfgFile = c.configPath
	case os.IsNotExist(err) && c.configPath == defaultConfigPath:
		cfg = config.DefaultConfig()
	default:
		return fmt.Errorf("load config %s: %w", c.configPath, err)
	}
	config.ApplyEnvOverrides(cfg)
	c.cfg = cfg

	rootPath := c.root
	if rootPath == "" {
		rootPath = cfg.Paths.ProjectRoot
	}
	if rootPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		rootPath, err = config.DetectProjectRoot([]string{cwd})
		if err != nil {
			return err
		}
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return err
	}
	c.rootPath = abs
	return nil
}

// newApp builds the application. When index is set the workspace is
// registered and indexed before returning.
func (c *cli) newApp(ctx context.Context, index bool) (*app.App, error) {
	a, err := app.New(c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	if !index {
		return a, nil
	}
	if _, err := a.AddWorkspace(ctx, c.rootPath); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// fail prints err and returns it so cobra exits non-zero.
func (c *cli) fail(err error) error {
	fmt.Fprintln(c.stderr, renderError(err))
	return err
}
