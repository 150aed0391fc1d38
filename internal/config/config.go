package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/userconfig"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

const homePlaceholder = "~"

// Locations a category may never target, with "~" standing for the user's home.
var forbiddenRoots = []string{
	"/",
	"~",
	"/System",
	"/Applications",
	"/usr",
	"/bin",
	"/sbin",
	"/Library",
	"/Users",
	"~/Library",
	"~/Applications",
}

// User data directories nothing may reach into.
var userDataRoots = []string{
	"~/Documents",
	"~/Desktop",
	"~/Downloads",
	"~/Pictures",
	"~/Movies",
	"~/Music",
	"~/Library/Mobile Documents",
	"~/Library/Mail",
	"~/Library/Messages",
	"~/Library/Photos",
	"/System",
	"/Applications",
	"/usr",
	"/bin",
	"/sbin",
}

// A resolved category path must live below one of these.
var allowedRoots = []string{
	"~",
	"/Library",
	"/private/var",
}

// LoadEmbedded parses and validates the built-in catalog.
func LoadEmbedded() (*types.Config, error) {
	return parse(embeddedCatalog)
}

func Load(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*types.Config, error) {
	var cfg types.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveTemplate expands a leading "~" to home. Anything else is returned unchanged.
func ResolveTemplate(template, home string) string {
	if home == "" {
		return template
	}
	if template == homePlaceholder {
		return filepath.Clean(home)
	}
	if strings.HasPrefix(template, homePlaceholder+"/") {
		return filepath.Join(home, template[2:])
	}
	return template
}

// Validate checks the catalog against the current user's home directory.
func Validate(cfg *types.Config) error {
	return validate(cfg, utils.HomeDir())
}

func validate(cfg *types.Config, home string) error {
	var errs []error
	seen := make(map[string]bool, len(cfg.Categories))

	for _, cat := range cfg.Categories {
		if cat.ID == "" {
			errs = append(errs, errors.New("category with empty id"))
			continue
		}
		if seen[cat.ID] {
			errs = append(errs, fmt.Errorf("duplicate category id %q", cat.ID))
		}
		seen[cat.ID] = true

		switch cat.Safety {
		case types.SafetyLevelSafe, types.SafetyLevelModerate, types.SafetyLevelRisky:
		default:
			errs = append(errs, fmt.Errorf("category %q: invalid safety %q", cat.ID, cat.Safety))
		}
		switch cat.Method {
		case types.MethodTrash, types.MethodPermanent:
		default:
			errs = append(errs, fmt.Errorf("category %q: invalid method %q", cat.ID, cat.Method))
		}
		if len(cat.Paths) == 0 {
			errs = append(errs, fmt.Errorf("category %q: no paths", cat.ID))
		}
		for _, tmpl := range cat.Paths {
			if err := checkTemplate(tmpl, home); err != nil {
				errs = append(errs, fmt.Errorf("category %q: %w", cat.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}

func checkTemplate(tmpl, home string) error {
	resolved := ResolveTemplate(tmpl, home)
	if !filepath.IsAbs(resolved) {
		return fmt.Errorf("path %q does not resolve to an absolute path", tmpl)
	}
	if hasParentRef(resolved) {
		return fmt.Errorf("path %q must not contain '..'", tmpl)
	}

	base := globBase(resolved)
	for _, root := range forbiddenRoots {
		if base == ResolveTemplate(root, home) && !hasGlob(resolved) {
			return fmt.Errorf("path %q targets protected location %s", tmpl, root)
		}
		if resolved == ResolveTemplate(root, home)+"/*" || (root == "/" && resolved == "/*") {
			return fmt.Errorf("path %q targets protected location %s", tmpl, root)
		}
	}
	for _, root := range userDataRoots {
		if utils.IsWithin(base, ResolveTemplate(root, home)) {
			return fmt.Errorf("path %q reaches into %s", tmpl, root)
		}
	}
	for _, root := range allowedRoots {
		r := ResolveTemplate(root, home)
		if filepath.IsAbs(r) && utils.IsWithin(base, r) {
			return nil
		}
	}
	return fmt.Errorf("path %q is outside the allowed locations", tmpl)
}

func hasParentRef(p string) bool {
	for _, part := range strings.Split(p, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	return false
}

func hasGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// globBase returns the longest leading part of pattern without glob characters.
func globBase(pattern string) string {
	parts := strings.Split(filepath.Clean(pattern), string(filepath.Separator))
	for i, part := range parts {
		if hasGlob(part) {
			base := strings.Join(parts[:i], string(filepath.Separator))
			if base == "" {
				return string(filepath.Separator)
			}
			return base
		}
	}
	return filepath.Clean(pattern)
}

// Merge applies user overrides and custom categories to cfg and validates the result.
// cfg itself is not modified.
func Merge(cfg *types.Config, user *userconfig.UserConfig) (*types.Config, error) {
	out := &types.Config{
		Groups:     append([]types.Group(nil), cfg.Groups...),
		Categories: make([]types.Category, 0, len(cfg.Categories)),
	}
	if user == nil {
		out.Categories = append(out.Categories, cfg.Categories...)
		return out, nil
	}

	for _, cat := range cfg.Categories {
		override, ok := user.CategoryOverrides[cat.ID]
		if ok {
			if override.Disabled != nil && *override.Disabled {
				continue
			}
			if len(override.Paths) > 0 {
				cat.Paths = append([]string(nil), override.Paths...)
			}
			if override.Note != nil {
				cat.Note = *override.Note
			}
		}
		cat.Excludes = append(append([]string(nil), cat.Excludes...), user.GetExcludedPaths(cat.ID)...)
		out.Categories = append(out.Categories, cat)
	}

	for _, custom := range user.CustomCategories {
		out.Categories = append(out.Categories, types.Category{
			ID:                     custom.ID,
			Name:                   custom.Name,
			Group:                  custom.Group,
			Safety:                 types.SafetyLevel(custom.Safety),
			Method:                 types.CleanupMethod(custom.Method),
			Note:                   custom.Note,
			Paths:                  append([]string(nil), custom.Paths...),
			Excludes:               user.GetExcludedPaths(custom.ID),
			RequiresElevatedAccess: custom.RequiresElevatedAccess,
		})
	}

	if err := Validate(out); err != nil {
		return nil, fmt.Errorf("user config: %w", err)
	}
	return out, nil
}

// Catalog is the ordered, read-only view of a validated config for one home directory.
type Catalog struct {
	cfg   *types.Config
	home  string
	byID  map[string]int
	bases []catalogBase
}

type catalogBase struct {
	base  string
	index int
	// glob is set when the template enumerates base's children rather than naming base itself.
	glob bool
}

func NewCatalog(cfg *types.Config, home string) *Catalog {
	c := &Catalog{
		cfg:  cfg,
		home: home,
		byID: make(map[string]int, len(cfg.Categories)),
	}
	for i, cat := range cfg.Categories {
		c.byID[cat.ID] = i
		for _, tmpl := range cat.Paths {
			resolved := ResolveTemplate(tmpl, home)
			c.bases = append(c.bases, catalogBase{base: globBase(resolved), index: i, glob: hasGlob(resolved)})
		}
	}
	// Longest base first so the most specific category wins.
	sort.SliceStable(c.bases, func(i, j int) bool {
		return len(c.bases[i].base) > len(c.bases[j].base)
	})
	return c
}

func (c *Catalog) Home() string { return c.home }

// Categories returns the categories in display order.
func (c *Catalog) Categories() []types.Category {
	return append([]types.Category(nil), c.cfg.Categories...)
}

func (c *Catalog) Groups() []types.Group {
	groups := append([]types.Group(nil), c.cfg.Groups...)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Order < groups[j].Order })
	return groups
}

func (c *Catalog) Get(id string) (types.Category, bool) {
	i, ok := c.byID[id]
	if !ok {
		return types.Category{}, false
	}
	return c.cfg.Categories[i], true
}

// Resolve returns the category's path templates expanded for this catalog's home.
func (c *Catalog) Resolve(cat types.Category) []string {
	out := make([]string, 0, len(cat.Paths))
	for _, tmpl := range cat.Paths {
		out = append(out, ResolveTemplate(tmpl, c.home))
	}
	return out
}

// CategoryForPath returns the most specific category whose location contains path.
func (c *Catalog) CategoryForPath(path string) (types.Category, bool) {
	path = filepath.Clean(path)
	for _, b := range c.bases {
		if utils.IsWithin(path, b.base) {
			return c.cfg.Categories[b.index], true
		}
	}
	return types.Category{}, false
}

// IsContainer reports whether path is the directory a category enumerates,
// such as ~/.Trash for "~/.Trash/*". Only its children are offered for deletion.
func (c *Catalog) IsContainer(path string) bool {
	path = filepath.Clean(path)
	for _, b := range c.bases {
		if b.glob && path == b.base {
			return true
		}
	}
	return false
}

// OwnedBases returns the literal base directories of every category except id.
func (c *Catalog) OwnedBases(id string) []string {
	var out []string
	for _, b := range c.bases {
		if c.cfg.Categories[b.index].ID != id {
			out = append(out, b.base)
		}
	}
	return out
}

// IsProtected reports whether path is a location deletion must never touch:
// a protected root itself, anything inside a user data directory, or anything
// outside the allowed locations.
func IsProtected(path, home string) bool {
	path = filepath.Clean(path)
	for _, root := range forbiddenRoots {
		if path == ResolveTemplate(root, home) {
			return true
		}
	}
	for _, root := range userDataRoots {
		if utils.IsWithin(path, ResolveTemplate(root, home)) {
			return true
		}
	}
	for _, root := range allowedRoots {
		r := ResolveTemplate(root, home)
		if filepath.IsAbs(r) && utils.IsWithin(path, r) {
			return false
		}
	}
	return true
}
