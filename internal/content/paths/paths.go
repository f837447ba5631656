// Package paths owns the static allow-list of logical content paths and the
// checks that keep request paths from ever reaching the filesystem
// unverified.
package paths

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	dErrors "pitchroom/pkg/domain-errors"
)

// manifest is the on-disk shape of the allow-list.
type manifest struct {
	Paths []string `yaml:"paths"`
}

// Catalog is the immutable set of permitted logical content paths,
// registered at process start.
type Catalog struct {
	allowed map[string]struct{}
}

// Load builds a catalog from the embedded manifest, or from the YAML file at
// manifestPath when given.
func Load(manifestPath string) (*Catalog, error) {
	raw := defaultManifest
	if manifestPath != "" {
		b, err := os.ReadFile(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("read content manifest: %w", err)
		}
		raw = b
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse content manifest: %w", err)
	}
	if len(m.Paths) == 0 {
		return nil, fmt.Errorf("content manifest lists no paths")
	}

	allowed := make(map[string]struct{}, len(m.Paths))
	for _, p := range m.Paths {
		cleaned := path.Clean(strings.TrimSpace(p))
		if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "/") || strings.Contains(cleaned, "..") {
			return nil, fmt.Errorf("content manifest entry %q is not a relative logical path", p)
		}
		allowed[cleaned] = struct{}{}
	}
	return &Catalog{allowed: allowed}, nil
}

// NewCatalog builds a catalog directly from logical paths; used by tests.
func NewCatalog(paths ...string) *Catalog {
	allowed := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		allowed[p] = struct{}{}
	}
	return &Catalog{allowed: allowed}
}

// Resolve joins and normalizes request path segments into a logical path.
// Traversal indicators are rejected before allow-list membership is even
// consulted, so a hostile path never reaches resolution. The returned
// errors carry CodeInvalidPath.
func (c *Catalog) Resolve(raw string) (string, error) {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidPath, "empty content path")
	}
	if strings.HasPrefix(raw, "/") || strings.Contains(raw, "\\") {
		return "", dErrors.New(dErrors.CodeInvalidPath, "absolute or malformed content path")
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "" || segment == "." || segment == ".." || strings.Contains(segment, "~") {
			return "", dErrors.New(dErrors.CodeInvalidPath, "content path contains traversal indicators")
		}
	}

	logical := path.Clean(trimmed)
	if _, ok := c.allowed[logical]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidPath, fmt.Sprintf("content path %q is not allow-listed", logical))
	}
	return logical, nil
}

// Contains reports allow-list membership for an already-normalized path.
func (c *Catalog) Contains(logical string) bool {
	_, ok := c.allowed[logical]
	return ok
}

// All returns the allow-listed paths in stable order.
func (c *Catalog) All() []string {
	out := make([]string, 0, len(c.allowed))
	for p := range c.allowed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
