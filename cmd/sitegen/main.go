package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/sitegen/internal"
	pkgconfig "github.com/starford/sitegen/pkg/config"
)

const usageExitCode = 2

// usageError marks bad invocations; main exits with usageExitCode for them.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// parseDirs checks that args are exactly SOURCE and OUTPUT and that both
// name existing directories.
func parseDirs(args []string) (string, string, error) {
	if len(args) != 2 {
		return "", "", &usageError{msg: fmt.Sprintf("expected SOURCE and OUTPUT directories, got %d argument(s)", len(args))}
	}
	for _, dir := range args {
		info, err := os.Stat(dir)
		if err != nil {
			return "", "", &usageError{msg: fmt.Sprintf("%s: no such directory", dir)}
		}
		if !info.IsDir() {
			return "", "", &usageError{msg: fmt.Sprintf("%s: not a directory", dir)}
		}
	}
	return args[0], args[1], nil
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	var err error
	if cmd.IsSet("config") {
		err = pkgconfig.Load(path, cfg)
	} else {
		err = pkgconfig.LoadOptional(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.Bool("history") {
		cfg.History.Enabled = true
	}
	if cmd.IsSet("db") {
		cfg.History.Path = cmd.String("db")
	}
	return cfg, nil
}

// runMode returns an Action that validates the directories and runs mode.
func runMode(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		src, out, err := parseDirs(cmd.Args().Slice())
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.IsSet("port") {
			cfg.Serve.Port = int(cmd.Int("port"))
			if err := cfg.Validate(); err != nil {
				return &usageError{msg: err.Error()}
			}
		}
		if cmd.Bool("no-reload") {
			cfg.Serve.LiveReload = false
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithDirs(src, out),
			internal.WithVerbose(cmd.Bool("verbose")),
		}
		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", mode, err)
		}
		return nil
	}
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 0 {
		return &usageError{msg: "history takes no arguments"}
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		return &usageError{msg: "--limit must be positive"}
	}
	return internal.Run(ctx,
		internal.WithConfig(cfg),
		internal.WithMode(internal.ModeHistory),
		internal.WithHistoryLimit(limit),
		internal.WithVerbose(cmd.Bool("verbose")),
	)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "sitegen",
		Usage:     "Render a directory of JSON-headed documents through Jinja-style layouts into HTML pages",
		ArgsUsage: "SOURCE OUTPUT",
		Action:    runMode(internal.ModeBuild),
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return &usageError{msg: err.Error()}
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every document as it is processed",
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "sitegen.yaml",
				Value:       "sitegen.yaml",
				Sources:     cli.EnvVars("SITEGEN_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "history",
				Usage: "Record builds in the history database",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the history database",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "watch",
				Usage:     "Build, then rebuild on every change until interrupted",
				ArgsUsage: "SOURCE OUTPUT",
				Action:    runMode(internal.ModeWatch),
			},
			{
				Name:      "serve",
				Usage:     "Build, watch and serve OUTPUT over HTTP with live reload",
				ArgsUsage: "SOURCE OUTPUT",
				Action:    runMode(internal.ModeServe),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP port",
						Value:   8080,
					},
					&cli.BoolFlag{
						Name:  "no-reload",
						Usage: "Do not inject the live-reload script",
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Print recent builds from the history database",
				Action: runHistory,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of runs to show",
						Value:   20,
					},
				},
			},
			{
				Name:      "mcp",
				Usage:     "Expose build tools over MCP on stdin/stdout",
				ArgsUsage: "SOURCE OUTPUT",
				Action:    runMode(internal.ModeMCP),
			},
		},
	}
}

func main() {
	cmd := newCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(os.Stderr, "sitegen: %s\n\nUsage: sitegen [-v] [--config FILE] SOURCE OUTPUT\n       sitegen watch|serve|mcp SOURCE OUTPUT\n       sitegen history [--limit N]\n", ue.msg)
			os.Exit(usageExitCode)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
