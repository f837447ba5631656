// Package schema maps logical content paths to structural validators.
// Schemas are compiled once at process start and immutable afterwards.
package schema

import (
	"embed"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"pitchroom/internal/content/models"
	dErrors "pitchroom/pkg/domain-errors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// schemaForPath names the schema file validating each logical path.
// Paths absent from this table skip validation entirely (permissive by
// default); shared/footer is deliberately unregistered.
var schemaForPath = map[string]string{
	"pages/dashboard":       "page.json",
	"pages/business-plan":   "page.json",
	"pages/financial-model": "page.json",
	"pages/market-analysis": "page.json",
	"pages/pitch":           "page.json",
	"pages/product":         "page.json",
	"pages/team":            "page.json",
	"pages/roadmap":         "page.json",
	"shared/navigation":     "navigation.json",
	"shared/live-metrics":   "live_metrics.json",
}

// Registry resolves a logical path to its compiled schema.
type Registry struct {
	byPath map[string]*jsonschema.Schema
}

// NewRegistry compiles every embedded schema. Called once from main; a
// schema that fails to compile is a build defect, not a runtime condition.
func NewRegistry() (*Registry, error) {
	compiler := jsonschema.NewCompiler()

	compiled := make(map[string]*jsonschema.Schema)
	byPath := make(map[string]*jsonschema.Schema, len(schemaForPath))
	for path, file := range schemaForPath {
		sch, ok := compiled[file]
		if !ok {
			src, err := schemaFS.Open("schemas/" + file)
			if err != nil {
				return nil, fmt.Errorf("open schema %s: %w", file, err)
			}
			if err := compiler.AddResource(file, src); err != nil {
				return nil, fmt.Errorf("add schema %s: %w", file, err)
			}
			sch, err = compiler.Compile(file)
			if err != nil {
				return nil, fmt.Errorf("compile schema %s: %w", file, err)
			}
			compiled[file] = sch
		}
		byPath[path] = sch
	}
	return &Registry{byPath: byPath}, nil
}

// ForPath returns the validator registered for a logical path, or nil when
// the path is unregistered.
func (r *Registry) ForPath(path string) *jsonschema.Schema {
	return r.byPath[path]
}

// SafeValidate checks doc against sch, returning a coded error whose
// details carry the validator's cause description plus the caller-supplied
// context string (used in logs). A nil schema always passes.
func SafeValidate(sch *jsonschema.Schema, doc models.Document, context string) error {
	if sch == nil {
		return nil
	}
	if err := sch.Validate(map[string]any(doc)); err != nil {
		var ve *jsonschema.ValidationError
		details := err.Error()
		if errors.As(err, &ve) {
			details = ve.Error()
		}
		return dErrors.New(dErrors.CodeValidationFailed, fmt.Sprintf("document failed schema validation (%s)", context)).
			WithDetails(details)
	}
	return nil
}
