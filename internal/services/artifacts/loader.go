package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"AutoValue/internal/domain/models"
	domsvc "AutoValue/internal/domain/service"
	"AutoValue/internal/services/pricing"
	applogger "AutoValue/pkg/logger"
)

const (
	DefaultManifestFile = "vehicle_price_pipeline.yaml"
	DefaultColumnsFile  = "input_columns.json"
)

// DefaultDirs are searched in order.
var DefaultDirs = []string{"models", "."}

// Loader locates the pipeline manifest and the training column list on disk.
type Loader struct {
	dirs         []string
	manifestFile string
	columnsFile  string
	timeout      time.Duration
	logger       *applogger.Logger
}

type Option func(*Loader)

func WithDirs(dirs ...string) Option {
	return func(l *Loader) {
		if len(dirs) > 0 {
			l.dirs = dirs
		}
	}
}

func WithManifestFile(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.manifestFile = name
		}
	}
}

func WithColumnsFile(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.columnsFile = name
		}
	}
}

// WithTimeout sets the predict timeout used when the manifest has none.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

func NewLoader(logger *applogger.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = applogger.NewNop()
	}
	l := &Loader{
		dirs:         DefaultDirs,
		manifestFile: DefaultManifestFile,
		columnsFile:  DefaultColumnsFile,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the first predictor found along the search path and its schema.
// A missing manifest moves on to the next directory; any other failure stops the
// search. (nil, nil) means the model is unavailable.
func (l *Loader) Load(ctx context.Context) (domsvc.Predictor, models.Schema) {
	for _, dir := range l.dirs {
		if ctx.Err() != nil {
			return nil, nil
		}
		p, schema, err := l.loadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("no model manifest", applogger.String("dir", dir))
			continue
		}
		if err != nil {
			l.logger.Error("failed to load model artifacts", applogger.String("dir", dir), applogger.Error(err))
			return nil, nil
		}
		m := p.Manifest()
		l.logger.Info("model artifacts loaded",
			applogger.String("dir", dir),
			applogger.String("model", m.Name),
			applogger.String("version", m.Version),
			applogger.String("endpoint", m.Endpoint),
			applogger.Int("columns", len(schema)),
		)
		return p, schema
	}
	l.logger.Warn("model artifacts not found; valuations disabled", applogger.Strings("dirs", l.dirs))
	return nil, nil
}

func (l *Loader) loadDir(dir string) (*pricing.HTTPPipelinePredictor, models.Schema, error) {
	m, err := readManifest(filepath.Join(dir, l.manifestFile))
	if err != nil {
		return nil, nil, err
	}
	if m.Timeout <= 0 {
		m.Timeout = l.timeout
	}

	schema, err := readColumns(filepath.Join(dir, l.columnsFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Warn("column schema missing; rows will not be aligned", applogger.String("dir", dir))
		schema = nil
	case err != nil:
		return nil, nil, err
	}
	return pricing.NewHTTPPipelinePredictor(m), schema, nil
}

func readManifest(path string) (models.ModelManifest, error) {
	var m models.ModelManifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Endpoint == "" {
		return m, fmt.Errorf("manifest %s: endpoint is required", path)
	}
	return m, nil
}

// readColumns accepts a JSON array or a YAML list of column names.
func readColumns(path string) (models.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cols []string
	if err := yaml.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("parse columns %s: %w", path, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("columns %s: empty column list", path)
	}
	return models.Schema(cols), nil
}

var _ domsvc.ArtifactLoader = (*Loader)(nil)
