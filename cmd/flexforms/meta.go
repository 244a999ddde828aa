package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/mitchellh/colorstring"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-flexforms/internal/metrics"
	"github.com/goliatone/go-flexforms/pkg/definition/pgstore"
	"github.com/goliatone/go-flexforms/pkg/engine"
	"github.com/goliatone/go-flexforms/pkg/expr"
	"github.com/goliatone/go-flexforms/pkg/expr/celexpr"
	"github.com/goliatone/go-flexforms/pkg/materialize"
	"github.com/goliatone/go-flexforms/pkg/orchestrator"
	"github.com/goliatone/go-flexforms/pkg/renderers/tui"
)

// Environment variables consulted for flag defaults.
const (
	EnvDialect     = "FLEXFORMS_DIALECT"
	EnvLogLevel    = "FLEXFORMS_LOG_LEVEL"
	EnvDatabaseURL = "FLEXFORMS_DATABASE_URL"
)

// Meta holds state and flags shared by every command.
type Meta struct {
	Ui        cli.Ui
	LogOutput io.Writer
	Getenv    func(string) string

	// Store and Driver replace the Postgres store and the terminal prompt
	// driver when set.
	Store  orchestrator.FormStore
	Driver tui.PromptDriver

	dialect     string
	logLevel    string
	databaseURL string
	noColor     bool

	logger       hclog.Logger
	registry     *prometheus.Registry
	materializer *materialize.Materializer
}

// FlagSet returns a flag set with the common flags registered.
func (m *Meta) FlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&m.dialect, "dialect", m.env(EnvDialect, "native"), "expression dialect: native or cel")
	fs.StringVar(&m.logLevel, "log-level", m.env(EnvLogLevel, "warn"), "log level: trace, debug, info, warn, error")
	fs.StringVar(&m.databaseURL, "database-url", m.env(EnvDatabaseURL, ""), "Postgres URL used for pg:<form> references")
	fs.BoolVar(&m.noColor, "no-color", false, "disable colored output")
	return fs
}

func (m *Meta) env(key, fallback string) string {
	if m.Getenv == nil {
		return fallback
	}
	if v := strings.TrimSpace(m.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (m *Meta) logOutput() io.Writer {
	if m.LogOutput == nil {
		return os.Stderr
	}
	return m.LogOutput
}

// Logger returns the command logger, writing to LogOutput.
func (m *Meta) Logger() hclog.Logger {
	if m.logger != nil {
		return m.logger
	}
	m.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "flexforms",
		Level:  hclog.LevelFromString(m.logLevel),
		Output: m.logOutput(),
		Color:  hclog.ColorOff,
	})
	return m.logger
}

// Compiler returns the expression compiler for -dialect.
func (m *Meta) Compiler() (expr.Compiler, error) {
	switch strings.ToLower(strings.TrimSpace(m.dialect)) {
	case "", "native":
		return expr.Default(), nil
	case "cel":
		return celexpr.New(), nil
	}
	return nil, fmt.Errorf("unknown dialect %q (want native or cel)", m.dialect)
}

// Metrics returns the registry evaluation passes are recorded on.
func (m *Meta) Metrics() *prometheus.Registry {
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	return m.registry
}

// Materializer builds a materializer for the selected dialect with metrics
// attached. It is built once per command.
func (m *Meta) Materializer() (*materialize.Materializer, error) {
	if m.materializer != nil {
		return m.materializer, nil
	}
	compiler, err := m.Compiler()
	if err != nil {
		return nil, err
	}
	collector, err := metrics.New(m.Metrics())
	if err != nil {
		return nil, err
	}
	m.materializer = materialize.New(
		materialize.WithLogger(m.Logger()),
		materialize.WithEngineOptions(engine.WithCompiler(compiler), engine.WithMetrics(collector)),
	)
	return m.materializer, nil
}

// FormStore returns the configured store, opening a pool when
// -database-url is set. The close func is never nil.
func (m *Meta) FormStore(ctx context.Context) (orchestrator.FormStore, func(), error) {
	if m.Store != nil {
		return m.Store, func() {}, nil
	}
	if m.databaseURL == "" {
		return nil, func() {}, nil
	}
	store, closeFn, err := pgstore.Open(ctx, m.databaseURL, pgstore.WithLogger(m.Logger().Named("pgstore")))
	if err != nil {
		return nil, func() {}, err
	}
	return store, closeFn, nil
}

// Orchestrator wires sources, the store and the materializer together.
func (m *Meta) Orchestrator(ctx context.Context, opts ...orchestrator.Option) (*orchestrator.Orchestrator, func(), error) {
	materializer, err := m.Materializer()
	if err != nil {
		return nil, func() {}, err
	}
	store, closeFn, err := m.FormStore(ctx)
	if err != nil {
		return nil, func() {}, err
	}
	base := []orchestrator.Option{
		orchestrator.WithLogger(m.Logger()),
		orchestrator.WithMaterializer(materializer),
	}
	if store != nil {
		base = append(base, orchestrator.WithStore(store))
	}
	return orchestrator.New(append(base, opts...)...), closeFn, nil
}

// Colorize expands [red]-style color codes unless -no-color was given.
func (m *Meta) Colorize(s string) string {
	c := colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: m.noColor,
		Reset:   true,
	}
	return c.Color(s)
}

// ReadValues loads submitted values from a YAML or JSON file. Integers stay
// integers.
func ReadValues(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}
	return values, nil
}

// setFlags collects repeated -set name=value flags.
type setFlags map[string]any

func (s setFlags) String() string { return "" }

func (s setFlags) Set(raw string) error {
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return errors.New("expected name=value")
	}
	s[name] = value
	return nil
}

func (s setFlags) apply(values map[string]any) map[string]any {
	for k, v := range s {
		values[k] = v
	}
	return values
}

// parseFlags parses args and reports flag errors through the Ui.
func (m *Meta) parseFlags(fs *flag.FlagSet, args []string, help string) bool {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			m.Ui.Output(strings.TrimSpace(help))
			return false
		}
		m.Ui.Error(err.Error())
		m.Ui.Error(strings.TrimSpace(help))
		return false
	}
	return true
}

const commonFlagsHelp = `
Common options:

  -dialect=native      Expression dialect: native or cel. Env FLEXFORMS_DIALECT.
  -log-level=warn      Log level. Env FLEXFORMS_LOG_LEVEL.
  -database-url=URL    Postgres URL used to resolve pg:<form> references.
                       Env FLEXFORMS_DATABASE_URL.
  -no-color            Disable colored output.
`
