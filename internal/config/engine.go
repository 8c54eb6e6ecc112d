package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/pointpipe/internal/planefit"
)

// DefaultCatalogPath is where compiled graphs are stored when no path is
// configured.
const DefaultCatalogPath = "pointpipe.db"

// EngineConfig holds engine-wide settings. Every field is optional; the
// Get* methods supply defaults for anything left unset, so partial files
// are safe.
type EngineConfig struct {
	// Plugins are loaded before any pipeline is compiled.
	Plugins []string `json:"plugins,omitempty"`

	// Plane fit defaults, used when a stage does not set knn or threads.
	PlaneFitKNN     *int `json:"planefit_knn,omitempty"`
	PlaneFitThreads *int `json:"planefit_threads,omitempty"`

	// CatalogPath is the SQLite file compiled graphs are saved to.
	CatalogPath *string `json:"catalog_path,omitempty"`

	// Log streams
	LogOps   *bool `json:"log_ops,omitempty"`
	LogDiag  *bool `json:"log_diag,omitempty"`
	LogTrace *bool `json:"log_trace,omitempty"`
}

func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// EmptyEngineConfig returns a config with every field unset.
func EmptyEngineConfig() *EngineConfig {
	return &EngineConfig{}
}

// DefaultEngineConfig returns a config with every field set to its default.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		PlaneFitKNN:     ptrInt(planefit.DefaultKNN),
		PlaneFitThreads: ptrInt(planefit.DefaultThreads),
		CatalogPath:     ptrString(DefaultCatalogPath),
		LogOps:          ptrBool(true),
		LogDiag:         ptrBool(false),
		LogTrace:        ptrBool(false),
	}
}

// LoadEngineConfig loads an EngineConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyEngineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *EngineConfig) Validate() error {
	seen := make(map[string]bool, len(c.Plugins))
	for _, p := range c.Plugins {
		if p == "" {
			return fmt.Errorf("plugins must not contain empty names")
		}
		if seen[p] {
			return fmt.Errorf("plugin %q listed twice", p)
		}
		seen[p] = true
	}

	if err := c.GetPlaneFit().Validate(); err != nil {
		return fmt.Errorf("planefit: %w", err)
	}

	if c.CatalogPath != nil && *c.CatalogPath == "" {
		return fmt.Errorf("catalog_path must not be empty when set")
	}
	return nil
}

// GetPlaneFit returns the plane fit defaults.
func (c *EngineConfig) GetPlaneFit() planefit.Config {
	cfg := planefit.DefaultConfig()
	if c.PlaneFitKNN != nil {
		cfg.KNN = *c.PlaneFitKNN
	}
	if c.PlaneFitThreads != nil {
		cfg.Threads = *c.PlaneFitThreads
	}
	return cfg
}

// GetCatalogPath returns the catalog_path value or the default.
func (c *EngineConfig) GetCatalogPath() string {
	if c.CatalogPath == nil {
		return DefaultCatalogPath
	}
	return *c.CatalogPath
}

// GetLogOps returns the log_ops value or the default.
func (c *EngineConfig) GetLogOps() bool {
	if c.LogOps == nil {
		return true // default: warnings on
	}
	return *c.LogOps
}

// GetLogDiag returns the log_diag value or the default.
func (c *EngineConfig) GetLogDiag() bool {
	if c.LogDiag == nil {
		return false
	}
	return *c.LogDiag
}

// GetLogTrace returns the log_trace value or the default.
func (c *EngineConfig) GetLogTrace() bool {
	if c.LogTrace == nil {
		return false
	}
	return *c.LogTrace
}
