// Package sanitize provides the single normalization of disease names into
// vector store collection identifiers.
//
// Chroma-compatible stores require collection names to match ^[a-z0-9_]{3,63}$.
// Every component that touches a collection goes through CollectionName so the
// same human-entered disease name always lands on the same collection.
package sanitize

import "strings"

const (
	// MaxNameLength is the maximum length of a collection identifier.
	MaxNameLength = 63

	// MinNameLength is the minimum length of a collection identifier.
	// Shorter results gain ShortNamePrefix.
	MinNameLength = 3

	// ShortNamePrefix is prepended when sanitization yields a name that is
	// too short on its own.
	ShortNamePrefix = "disease_"
)

// CollectionName maps a disease name to its collection identifier.
//
// Rules applied, in order:
//   - lowercase
//   - every non-alphanumeric character (per character, including multi-byte
//     runes) becomes a single underscore; runs are NOT collapsed
//   - leading and trailing underscores are trimmed
//   - results shorter than MinNameLength gain ShortNamePrefix
//   - the result is truncated to MaxNameLength
//
// The mapping is deterministic and total: any input, including the empty
// string, produces a valid identifier.
//
// Examples:
//
//	"COVID-19"      -> "covid_19"
//	"flu"           -> "flu"
//	"MS"            -> "disease_ms"
//	"" or "!!!"     -> "disease_"
func CollectionName(name string) string {
	name = strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	sanitized := strings.Trim(b.String(), "_")

	if len(sanitized) < MinNameLength {
		sanitized = ShortNamePrefix + sanitized
	}

	if len(sanitized) > MaxNameLength {
		sanitized = sanitized[:MaxNameLength]
	}

	return sanitized
}
