package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pitchroom/pkg/domain-errors"
)

func TestResolveAllowListedPath(t *testing.T) {
	catalog := NewCatalog("pages/dashboard", "shared/navigation")

	logical, err := catalog.Resolve("pages/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "pages/dashboard", logical)

	logical, err = catalog.Resolve("shared/navigation/")
	require.NoError(t, err)
	assert.Equal(t, "shared/navigation", logical)
}

func TestResolveRejectsUnknownPath(t *testing.T) {
	catalog := NewCatalog("pages/dashboard")

	_, err := catalog.Resolve("pages/does-not-exist")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidPath))
}

func TestResolveRejectsTraversalBeforeMembership(t *testing.T) {
	// Even paths that would clean to an allow-listed value are rejected
	// when any segment carries a traversal indicator.
	catalog := NewCatalog("pages/dashboard", "etc/passwd")

	cases := []string{
		"../pages/dashboard",
		"pages/../pages/dashboard",
		"pages/dashboard/..",
		"~/pages/dashboard",
		"pages/~dashboard",
		"/etc/passwd",
		"..",
		"",
		"//",
		"pages\\dashboard",
		"pages//dashboard",
	}
	for _, raw := range cases {
		_, err := catalog.Resolve(raw)
		assert.Error(t, err, "raw path %q", raw)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidPath), "raw path %q", raw)
	}
}

func TestLoadEmbeddedManifest(t *testing.T) {
	catalog, err := Load("")
	require.NoError(t, err)

	assert.True(t, catalog.Contains("pages/dashboard"))
	assert.True(t, catalog.Contains("pages/financial-model"))
	assert.True(t, catalog.Contains("shared/navigation"))
	assert.False(t, catalog.Contains("pages/does-not-exist"))
}

func TestLoadManifestOverride(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "content.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("paths:\n  - pages/custom\n"), 0o644))

	catalog, err := Load(manifest)
	require.NoError(t, err)
	assert.True(t, catalog.Contains("pages/custom"))
	assert.False(t, catalog.Contains("pages/dashboard"))
}

func TestLoadRejectsHostileManifestEntries(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "content.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("paths:\n  - ../outside\n"), 0o644))

	_, err := Load(manifest)
	assert.Error(t, err)
}
