package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/build"
	"github.com/starford/quire/internal/deploy"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/render"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Paths    PathsConfig       `yaml:"paths"`
	Content  ContentConfig     `yaml:"content"`
	Renderer RendererConfig    `yaml:"renderer"`
	Deploy   DeployConfig      `yaml:"deploy"`
	Catalog  CatalogConfig     `yaml:"catalog"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Paths, &c.Content, &c.Renderer, &c.Deploy, &c.Catalog, &c.Auth} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the preview server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// PathsConfig holds the five site roots and the template directory.
type PathsConfig struct {
	Posts       string `yaml:"posts"`
	Pages       string `yaml:"pages"`
	Artifacts   string `yaml:"artifacts"`
	Public      string `yaml:"public"`
	PublicPosts string `yaml:"public_posts"`
	Templates   string `yaml:"templates"`
}

// Validate validates the paths configuration.
func (c *PathsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Posts, validation.Required),
		validation.Field(&c.Pages, validation.Required),
		validation.Field(&c.Artifacts, validation.Required),
		validation.Field(&c.Public, validation.Required),
		validation.Field(&c.PublicPosts, validation.Required),
		validation.Field(&c.Templates, validation.Required),
	)
}

// PathConfig converts the configuration into build paths.
func (c *PathsConfig) PathConfig() paths.PathConfig {
	return paths.PathConfig{
		Posts:       filepath.Clean(c.Posts),
		Pages:       filepath.Clean(c.Pages),
		Artifacts:   filepath.Clean(c.Artifacts),
		Public:      filepath.Clean(c.Public),
		PublicPosts: filepath.Clean(c.PublicPosts),
		Templates:   filepath.Clean(c.Templates),
	}
}

// ContentConfig selects which sources take part in the build.
type ContentConfig struct {
	// LiterateExtensions are converted by the literate converter, with or
	// without the leading dot.
	LiterateExtensions []string `yaml:"literate_extensions"`
	Exclude            []string `yaml:"exclude"`
	Pages              []string `yaml:"pages"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Pages, validation.Each(validation.Required)),
		validation.Field(&c.LiterateExtensions, validation.Each(validation.Required)),
	)
}

// BuildOptions converts the configuration into pipeline options.
func (c *ContentConfig) BuildOptions() build.Options {
	exts := make([]string, len(c.LiterateExtensions))
	for i, ext := range c.LiterateExtensions {
		exts[i] = "." + strings.TrimPrefix(ext, ".")
	}
	return build.Options{LiterateExts: exts, Exclude: c.Exclude, Pages: c.Pages}
}

// RendererConfig selects the Markdown engine.
type RendererConfig struct {
	Engine  string `yaml:"engine"`
	Command string `yaml:"command"`
}

// Validate validates the renderer configuration.
func (c *RendererConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Engine, validation.Required, validation.In(render.EngineCommand, render.EngineGoldmark)),
		validation.Field(&c.Command, validation.When(c.Engine == render.EngineCommand, validation.Required)),
	)
}

// DeployConfig holds the Cloudflare Pages uploader settings.
type DeployConfig struct {
	Command string `yaml:"command"`
	Project string `yaml:"project"`
}

// Validate validates the deploy configuration.
func (c *DeployConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
		validation.Field(&c.Project, validation.Required),
	)
}

// CatalogConfig holds the SQLite post catalog configuration.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration of the preview API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	opts := build.DefaultOptions()
	exts := make([]string, len(opts.LiterateExts))
	for i, ext := range opts.LiterateExts {
		exts[i] = strings.TrimPrefix(ext, ".")
	}
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Paths: PathsConfig{
			Posts:       "posts",
			Pages:       "pages",
			Artifacts:   "artifacts",
			Public:      "public",
			PublicPosts: filepath.Join("public", "posts"),
			Templates:   "templates",
		},
		Content: ContentConfig{
			LiterateExtensions: exts,
			Exclude:            opts.Exclude,
			Pages:              opts.Pages,
		},
		Renderer: RendererConfig{
			Engine:  render.EngineCommand,
			Command: render.DefaultCommand,
		},
		Deploy: DeployConfig{
			Command: deploy.DefaultCommand,
			Project: deploy.DefaultProject,
		},
		Catalog: CatalogConfig{
			Path: "quire.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
