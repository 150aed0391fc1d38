package types

import (
	"path/filepath"
	"time"
)

type SafetyLevel string

const (
	SafetyLevelSafe     SafetyLevel = "safe"
	SafetyLevelModerate SafetyLevel = "moderate"
	SafetyLevelRisky    SafetyLevel = "risky"
)

type CleanupMethod string

const (
	MethodTrash     CleanupMethod = "trash"
	MethodPermanent CleanupMethod = "permanent"
)

type Category struct {
	ID                     string        `yaml:"id"`
	Name                   string        `yaml:"name"`
	Icon                   string        `yaml:"icon,omitempty"`
	Group                  string        `yaml:"group"`
	Safety                 SafetyLevel   `yaml:"safety"`
	Method                 CleanupMethod `yaml:"method"`
	Note                   string        `yaml:"note,omitempty"`
	Paths                  []string      `yaml:"paths"`
	Excludes               []string      `yaml:"excludes,omitempty"`
	RequiresElevatedAccess bool          `yaml:"requires_elevated_access,omitempty"`
	RequiresConsent        bool          `yaml:"requires_consent,omitempty"`
}

type Group struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Order int    `yaml:"order"`
}

type Config struct {
	Categories []Category `yaml:"categories"`
	Groups     []Group    `yaml:"groups"`
}

type CleanableItem struct {
	Path        string
	Name        string
	Size        int64
	FileCount   int64
	IsDirectory bool
	ModifiedAt  time.Time
	CategoryID  string
	Selected    bool

	// Estimated is set when Size comes from a capped preview walk.
	Estimated  bool
	// Unreadable entries are kept with size 0 so an elevated delete can still remove them.
	Unreadable bool
}

// NewCleanableItem returns a selected item named after the last path element.
func NewCleanableItem(path, categoryID string, size int64) CleanableItem {
	if size < 0 {
		size = 0
	}
	return CleanableItem{
		Path:       path,
		Name:       filepath.Base(path),
		Size:       size,
		CategoryID: categoryID,
		Selected:   true,
	}
}

type ScanResult struct {
	Category  Category
	Items     []CleanableItem
	Truncated bool
	// Denied counts entries that could not be read, including unreadable items.
	Denied    int
	Error     error
}

func NewScanResult(cat Category) *ScanResult {
	return &ScanResult{
		Category: cat,
		Items:    make([]CleanableItem, 0),
	}
}

func (r *ScanResult) TotalSize() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.Size
	}
	return total
}

func (r *ScanResult) TotalFileCount() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.FileCount
	}
	return total
}

func (r *ScanResult) SelectedSize() int64 {
	var total int64
	for _, item := range r.Items {
		if item.Selected {
			total += item.Size
		}
	}
	return total
}

// IsSelected reports whether every item is selected. An empty result is selected.
func (r *ScanResult) IsSelected() bool {
	for _, item := range r.Items {
		if !item.Selected {
			return false
		}
	}
	return true
}

func (r *ScanResult) SetSelected(selected bool) {
	for i := range r.Items {
		r.Items[i].Selected = selected
	}
}

// ToggleItem flips the selection of the item at path and reports whether it was found.
func (r *ScanResult) ToggleItem(path string) bool {
	for i := range r.Items {
		if r.Items[i].Path == path {
			r.Items[i].Selected = !r.Items[i].Selected
			return true
		}
	}
	return false
}

func (r *ScanResult) SelectedPaths() []string {
	paths := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Selected {
			paths = append(paths, item.Path)
		}
	}
	return paths
}

// SizeNotComputed marks an AppIdentity whose size has not been calculated yet.
const SizeNotComputed int64 = -1

type AppIdentity struct {
	BundleID    string
	Name        string
	InstallPath string
	Size        int64
}

func (a AppIdentity) SizeComputed() bool {
	return a.Size != SizeNotComputed
}

// Confidence describes how certain a leftover match is.
type Confidence int

const (
	ConfidenceHigh   Confidence = iota // name contains the bundle identifier
	ConfidenceMedium                   // name contains only the display name
	// ConfidenceLow is reserved for pattern-based matchers. No current rule produces it.
	ConfidenceLow
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "unknown"
	}
}

func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type LeftoverFile struct {
	Path        string     `json:"path"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Size        int64      `json:"size"`
	Confidence  Confidence `json:"confidence"`
	IsDirectory bool       `json:"is_directory"`
	ModifiedAt  time.Time  `json:"modified_at"`
	Selected    bool       `json:"selected"`
}
