package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AutoValue/internal/domain/models"
	"AutoValue/internal/services/pricing"
)

const manifest = `name: vehicle-price
version: "3"
engine: sklearn
endpoint: http://model:5001
predict_path: /invocations
timeout: 2s
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadPrimaryDirectory(t *testing.T) {
	root := t.TempDir()
	primary := filepath.Join(root, "models")
	writeFile(t, primary, DefaultManifestFile, manifest)
	writeFile(t, primary, DefaultColumnsFile, `["make","year","vehicle_age"]`)

	p, schema := NewLoader(nil, WithDirs(primary, root)).Load(context.Background())
	require.NotNil(t, p)
	assert.Equal(t, models.Schema{"make", "year", "vehicle_age"}, schema)

	m := p.(*pricing.HTTPPipelinePredictor).Manifest()
	assert.Equal(t, "vehicle-price", m.Name)
	assert.Equal(t, 2*time.Second, m.Timeout)
}

func TestLoadFallsBackWhenPrimaryMissing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, DefaultManifestFile, manifest)
	writeFile(t, root, DefaultColumnsFile, "- make\n- mileage\n")

	p, schema := NewLoader(nil, WithDirs(filepath.Join(root, "models"), root)).Load(context.Background())
	require.NotNil(t, p)
	assert.Equal(t, models.Schema{"make", "mileage"}, schema)
}

func TestLoadNothingFound(t *testing.T) {
	root := t.TempDir()
	p, schema := NewLoader(nil, WithDirs(filepath.Join(root, "models"), root)).Load(context.Background())
	assert.Nil(t, p)
	assert.Nil(t, schema)
}

func TestLoadWithoutColumnsSkipsAlignment(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, DefaultManifestFile, manifest)

	p, schema := NewLoader(nil, WithDirs(root)).Load(context.Background())
	require.NotNil(t, p)
	assert.Nil(t, schema)
}

func TestLoadCorruptManifestStopsSearch(t *testing.T) {
	root := t.TempDir()
	primary := filepath.Join(root, "models")
	writeFile(t, primary, DefaultManifestFile, "endpoint: [unterminated")
	writeFile(t, root, DefaultManifestFile, manifest)

	p, schema := NewLoader(nil, WithDirs(primary, root)).Load(context.Background())
	assert.Nil(t, p)
	assert.Nil(t, schema)
}

func TestLoadManifestWithoutEndpoint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, DefaultManifestFile, "name: vehicle-price\n")

	p, _ := NewLoader(nil, WithDirs(root)).Load(context.Background())
	assert.Nil(t, p)
}

func TestLoadDefaultTimeoutApplied(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, DefaultManifestFile, "endpoint: http://model:5001\n")

	p, _ := NewLoader(nil, WithDirs(root), WithTimeout(750*time.Millisecond)).Load(context.Background())
	require.NotNil(t, p)
	assert.Equal(t, 750*time.Millisecond, p.(*pricing.HTTPPipelinePredictor).Manifest().Timeout)
}
