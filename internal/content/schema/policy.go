package schema

// Policy decides what a read-side validation failure means. Injected at
// startup instead of checked inline against the environment so both
// branches stay deterministic under test.
//
// Writes are always strict regardless of policy; an invalid document must
// never reach the store.
type Policy string

const (
	// PolicyStrict fails the read (HTTP 422) on schema mismatch.
	PolicyStrict Policy = "strict"
	// PolicyPermissive logs a warning and serves the unvalidated document,
	// trading strictness for availability.
	PolicyPermissive Policy = "permissive"
)

// PolicyForEnvironment maps the runtime environment onto a policy:
// development is strict, production permissive.
func PolicyForEnvironment(isDevelopment bool) Policy {
	if isDevelopment {
		return PolicyStrict
	}
	return PolicyPermissive
}
