// Package metadata reads application identity from bundle metadata files.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"howett.net/plist"

	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

// Manifest names checked, in order, when a bundle has no Info.plist.
var manifestNames = []string{"manifest.json", "manifest.yaml", "manifest.yml", "package.json"}

// ReadIdentity returns the identity of the application at appPath.
// Unreadable or malformed metadata yields an identity with no bundle ID.
func ReadIdentity(appPath string) types.AppIdentity {
	id := types.AppIdentity{
		Name:        strings.TrimSuffix(filepath.Base(appPath), filepath.Ext(appPath)),
		InstallPath: appPath,
		Size:        types.SizeNotComputed,
	}

	plist := filepath.Join(appPath, "Contents", "Info.plist")
	if info, err := readPlist(plist); err == nil {
		id.BundleID = strings.TrimSpace(info.BundleID)
		if name := firstNonEmpty(info.DisplayName, info.Name); name != "" {
			id.Name = name
		}
		return id
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Debug("info.plist unreadable", "path", plist, "error", err)
	}

	for _, name := range manifestNames {
		m, err := readManifest(filepath.Join(appPath, name))
		if err != nil {
			continue
		}
		id.BundleID = m.identifier()
		if m.Name != "" {
			id.Name = m.Name
		}
		return id
	}
	return id
}

// ReadIdentifier returns the bundle identifier declared by a single metadata file.
// The file may be a property list or a JSON or YAML manifest.
func ReadIdentifier(path string) (string, bool) {
	if strings.EqualFold(filepath.Ext(path), ".plist") {
		info, err := readPlist(path)
		if err != nil {
			return "", false
		}
		id := strings.TrimSpace(info.BundleID)
		return id, id != ""
	}

	m, err := readManifest(path)
	if err != nil {
		return "", false
	}
	id := m.identifier()
	return id, id != ""
}

// infoPlist holds the Info.plist keys that identify an application.
type infoPlist struct {
	BundleID    string `plist:"CFBundleIdentifier"`
	Name        string `plist:"CFBundleName"`
	DisplayName string `plist:"CFBundleDisplayName"`
}

// readPlist decodes a property list in any format plist understands: XML, binary or OpenStep.
func readPlist(path string) (infoPlist, error) {
	var info infoPlist
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("parse %s: %w", path, err)
	}
	return info, nil
}

type manifest struct {
	BundleID   string `yaml:"bundle_id"`
	BundleIDJS string `yaml:"bundleId"`
	Identifier string `yaml:"identifier"`
	AppID      string `yaml:"appId"`
	Name       string `yaml:"name"`
}

func (m manifest) identifier() string {
	return strings.TrimSpace(firstNonEmpty(m.BundleID, m.BundleIDJS, m.Identifier, m.AppID))
}

// readManifest parses a JSON or YAML manifest. yaml.v3 accepts JSON documents as YAML.
func readManifest(path string) (manifest, error) {
	var m manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
