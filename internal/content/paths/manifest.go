package paths

import _ "embed"

// defaultManifest is the built-in allow-list. Adding a page to the site
// means adding its logical path here (or shipping an override manifest via
// CONTENT_MANIFEST) and seeding its document under the content root.
//
//go:embed manifest.yaml
var defaultManifest []byte
