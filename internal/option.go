package internal

import (
	"io"
	"log/slog"

	"github.com/starford/quire/internal/deploy"
	"github.com/starford/quire/internal/render"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logger    *slog.Logger
	logOutput io.Writer
	renderer  render.Renderer
	deployer  deploy.Deployer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithLogOutput sets where the configured JSON logger writes (stdout by default).
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithRenderer replaces the renderer selected by the configuration.
func WithRenderer(r render.Renderer) Option {
	return func(a *application) {
		a.renderer = r
	}
}

// WithDeployer replaces the configured Cloudflare Pages uploader.
func WithDeployer(d deploy.Deployer) Option {
	return func(a *application) {
		a.deployer = d
	}
}
