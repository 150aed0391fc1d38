package userconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configDir  = ".config/mac-maintain"
	configFile = "config.yaml"
)

const (
	TrashFinder = "finder"
	TrashRename = "rename"

	PromptTTY    = "tty"
	PromptDialog = "dialog"
)

// CustomCategory defines a user-defined cleanup category
type CustomCategory struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Group  string   `yaml:"group"`
	Safety string   `yaml:"safety"` // safe, moderate, risky
	Method string   `yaml:"method"` // trash, permanent
	Note   string   `yaml:"note,omitempty"`
	Paths  []string `yaml:"paths"`
	// RequiresElevatedAccess routes deletion through the administrator session
	RequiresElevatedAccess bool `yaml:"requires_elevated_access,omitempty"`
}

// CategoryOverride allows partial override of category properties
type CategoryOverride struct {
	Disabled *bool    `yaml:"disabled,omitempty"`
	Paths    []string `yaml:"paths,omitempty"`
	Note     *string  `yaml:"note,omitempty"`
}

// ScanSettings tunes the filesystem walker and the worker pool.
type ScanSettings struct {
	Concurrency  int `yaml:"concurrency,omitempty"`
	FastMaxItems int `yaml:"fast_max_items,omitempty"`
	YieldEvery   int `yaml:"yield_every,omitempty"`
}

// UserConfig stores user preferences
type UserConfig struct {
	// ExcludedPaths maps category ID to list of excluded paths
	ExcludedPaths map[string][]string `yaml:"excluded_paths,omitempty"`
	// LastSelection stores the category IDs of the last clean run
	LastSelection []string `yaml:"last_selection,omitempty"`
	// CustomCategories defines user-defined cleanup categories
	CustomCategories []CustomCategory `yaml:"custom_categories,omitempty"`
	// CategoryOverrides overrides specific fields of existing categories (by ID)
	CategoryOverrides map[string]CategoryOverride `yaml:"category_overrides,omitempty"`

	Scan           ScanSettings `yaml:"scan,omitempty"`
	TrashMethod    string       `yaml:"trash_method,omitempty"`
	CheckInUse     bool         `yaml:"check_in_use,omitempty"`
	PasswordPrompt string       `yaml:"password_prompt,omitempty"`

	path string
}

// Default returns an empty config with every map initialized.
func Default() *UserConfig {
	cfg := &UserConfig{}
	cfg.normalize()
	return cfg
}

func (c *UserConfig) normalize() {
	if c.ExcludedPaths == nil {
		c.ExcludedPaths = make(map[string][]string)
	}
	if c.CustomCategories == nil {
		c.CustomCategories = make([]CustomCategory, 0)
	}
	if c.CategoryOverrides == nil {
		c.CategoryOverrides = make(map[string]CategoryOverride)
	}
	if c.TrashMethod == "" {
		c.TrashMethod = TrashFinder
	}
	if c.PasswordPrompt == "" {
		c.PasswordPrompt = PromptDialog
	}
}

// Validate rejects enum values the pipeline does not understand.
func (c *UserConfig) Validate() error {
	switch c.TrashMethod {
	case TrashFinder, TrashRename:
	default:
		return fmt.Errorf("invalid trash_method %q (want %s or %s)", c.TrashMethod, TrashFinder, TrashRename)
	}
	switch c.PasswordPrompt {
	case PromptTTY, PromptDialog:
	default:
		return fmt.Errorf("invalid password_prompt %q (want %s or %s)", c.PasswordPrompt, PromptTTY, PromptDialog)
	}
	if c.Scan.Concurrency < 0 || c.Scan.FastMaxItems < 0 || c.Scan.YieldEvery < 0 {
		return fmt.Errorf("scan settings must not be negative")
	}
	return nil
}

// SetLastSelection saves the selected category IDs
func (c *UserConfig) SetLastSelection(categoryIDs []string) {
	c.LastSelection = categoryIDs
}

// GetLastSelection returns the last selected category IDs
func (c *UserConfig) GetLastSelection() []string {
	return c.LastSelection
}

// HasLastSelection checks if there's a saved selection
func (c *UserConfig) HasLastSelection() bool {
	return len(c.LastSelection) > 0
}

// DefaultPath returns the full path to the config file
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, configFile), nil
}

// Load loads user config from the default location
func Load() (*UserConfig, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFrom(path)
}

// LoadFrom loads user config from path. A missing file yields the defaults.
func LoadFrom(path string) (*UserConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			cfg.path = path
			return cfg, nil
		}
		return nil, err
	}

	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Save saves user config to the file it was loaded from, or the default location
func (c *UserConfig) Save() error {
	path := c.path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// SetExcludedPaths sets excluded paths for a category
func (c *UserConfig) SetExcludedPaths(categoryID string, paths []string) {
	if len(paths) == 0 {
		delete(c.ExcludedPaths, categoryID)
	} else {
		c.ExcludedPaths[categoryID] = paths
	}
}

// GetExcludedPaths gets excluded paths for a category
func (c *UserConfig) GetExcludedPaths(categoryID string) []string {
	return c.ExcludedPaths[categoryID]
}

// IsExcluded checks if a path is excluded for a category
func (c *UserConfig) IsExcluded(categoryID, path string) bool {
	for _, p := range c.ExcludedPaths[categoryID] {
		if p == path {
			return true
		}
	}
	return false
}
