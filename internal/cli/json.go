package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/2ykwang/mac-maintain-go/internal/types"
)

type categoryJSON struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Group                  string   `json:"group"`
	Safety                 string   `json:"safety"`
	Method                 string   `json:"method"`
	Note                   string   `json:"note,omitempty"`
	Paths                  []string `json:"paths"`
	RequiresElevatedAccess bool     `json:"requires_elevated_access"`
	RequiresConsent        bool     `json:"requires_consent,omitempty"`
}

type scanJSON struct {
	Timestamp  time.Time          `json:"timestamp"`
	Mode       string             `json:"mode"`
	Categories []scanCategoryJSON `json:"categories"`
	TotalSize  int64              `json:"total_size"`
	TotalItems int                `json:"total_items"`
}

type scanCategoryJSON struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Size      int64      `json:"size"`
	Selected  int64      `json:"selected_size"`
	Files     int64      `json:"files"`
	Truncated bool       `json:"truncated,omitempty"`
	Denied    int        `json:"denied,omitempty"`
	Error     string     `json:"error,omitempty"`
	Items     []itemJSON `json:"items"`
}

type itemJSON struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Files      int64     `json:"files"`
	Estimated  bool      `json:"estimated,omitempty"`
	Unreadable bool      `json:"unreadable,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
}

type leftoversJSON struct {
	App   appJSON              `json:"app"`
	Files []types.LeftoverFile `json:"files"`
	Size  int64                `json:"size"`
}

type appJSON struct {
	BundleID    string `json:"bundle_id,omitempty"`
	Name        string `json:"name"`
	InstallPath string `json:"install_path,omitempty"`
}

func buildCategoriesJSON(cats []types.Category) []categoryJSON {
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryJSON{
			ID:                     c.ID,
			Name:                   c.Name,
			Group:                  c.Group,
			Safety:                 string(c.Safety),
			Method:                 string(c.Method),
			Note:                   c.Note,
			Paths:                  c.Paths,
			RequiresElevatedAccess: c.RequiresElevatedAccess,
			RequiresConsent:        c.RequiresConsent,
		})
	}
	return out
}

func buildScanJSON(results []*types.ScanResult, mode string, now time.Time) scanJSON {
	out := scanJSON{Timestamp: now, Mode: mode, Categories: make([]scanCategoryJSON, 0, len(results))}
	for _, r := range results {
		c := scanCategoryJSON{
			ID:        r.Category.ID,
			Name:      r.Category.Name,
			Size:      r.TotalSize(),
			Selected:  r.SelectedSize(),
			Files:     r.TotalFileCount(),
			Truncated: r.Truncated,
			Denied:    r.Denied,
			Items:     make([]itemJSON, 0, len(r.Items)),
		}
		if r.Error != nil {
			c.Error = r.Error.Error()
		}
		for _, item := range r.Items {
			c.Items = append(c.Items, itemJSON{
				Path:       item.Path,
				Size:       item.Size,
				Files:      item.FileCount,
				Estimated:  item.Estimated,
				Unreadable: item.Unreadable,
				ModifiedAt: item.ModifiedAt,
			})
		}
		out.TotalSize += c.Size
		out.TotalItems += len(c.Items)
		out.Categories = append(out.Categories, c)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
