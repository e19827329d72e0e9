// Package identifier validates caller-supplied SQL identifiers (table,
// column, index, and schema names) before they are interpolated into SQL
// text. Values never reach the query planner this way; only identifiers do,
// and only after passing this validator.
package identifier

import (
	"fmt"
	"regexp"
	"strings"
)

// validPattern matches a conservative, Postgres-safe unquoted identifier:
// a letter or underscore followed by letters, digits, or underscores, up
// to 63 bytes (Postgres's NAMEDATALEN limit minus the trailing nul).
var validPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const maxLen = 63

// Validate returns an error if name is not safe to interpolate as a SQL
// identifier. kind is used only to make the error message specific
// (e.g. "table", "column", "index", "schema").
func Validate(kind, name string) error {
	if name == "" {
		return fmt.Errorf("identifier: %s name must not be empty", kind)
	}
	if len(name) > maxLen {
		return fmt.Errorf("identifier: %s name %q exceeds %d characters", kind, name, maxLen)
	}
	if !validPattern.MatchString(name) {
		return fmt.Errorf("identifier: %s name %q is not a valid identifier", kind, name)
	}
	return nil
}

// Quote validates name and returns it double-quoted for safe interpolation
// into SQL text. Any embedded double quote is rejected by Validate before
// this point, so no escaping is required here.
func Quote(kind, name string) (string, error) {
	if err := Validate(kind, name); err != nil {
		return "", err
	}
	return `"` + name + `"`, nil
}

// QuoteQualified validates and quotes a schema-qualified name, e.g.
// `"myschema"."mytable"`. schema may be empty, in which case only the
// unqualified, quoted name is returned.
func QuoteQualified(schema, kind, name string) (string, error) {
	quoted, err := Quote(kind, name)
	if err != nil {
		return "", err
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return quoted, nil
	}
	qSchema, err := Quote("schema", schema)
	if err != nil {
		return "", err
	}
	return qSchema + "." + quoted, nil
}
