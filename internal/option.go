package internal

import "io"

// Mode selects what Run does after loading configuration.
type Mode string

// Run modes.
const (
	ModeBuild   Mode = "build"
	ModeWatch   Mode = "watch"
	ModeServe   Mode = "serve"
	ModeMCP     Mode = "mcp"
	ModeHistory Mode = "history"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config       *Config
	mode         Mode
	sourceDir    string
	outputDir    string
	verbose      bool
	historyLimit int
	logOutput    io.Writer
	stdout       io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects the run mode. Build is the default.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithDirs sets the source and output directories.
func WithDirs(sourceDir, outputDir string) Option {
	return func(a *application) {
		a.sourceDir = sourceDir
		a.outputDir = outputDir
	}
}

// WithVerbose lowers the log level to debug.
func WithVerbose(v bool) Option {
	return func(a *application) {
		a.verbose = v
	}
}

// WithHistoryLimit bounds the runs printed in history mode.
func WithHistoryLimit(n int) Option {
	return func(a *application) {
		a.historyLimit = n
	}
}

// WithLogOutput redirects log output, stderr by default.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithStdout redirects command output, stdout by default.
func WithStdout(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}
