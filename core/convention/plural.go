package convention

import "strings"

// Singular returns the singular form of an entity title, used for labels
// such as "New Invoice". Mass nouns common in business data stay as-is.
func Singular(word string) string {
	if word == "" {
		return ""
	}

	// Only the last word of a multi-word title is inflected.
	if i := strings.LastIndexByte(word, ' '); i >= 0 {
		return word[:i+1] + Singular(word[i+1:])
	}

	lower := strings.ToLower(word)

	if uncountable[lower] {
		return word
	}
	if singular, ok := irregularSingulars[lower]; ok {
		if word[0] >= 'A' && word[0] <= 'Z' {
			return strings.ToUpper(singular[:1]) + singular[1:]
		}
		return singular
	}

	switch {
	case strings.HasSuffix(lower, "ies") && len(word) > 3:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(lower, "sses"),
		strings.HasSuffix(lower, "xes"),
		strings.HasSuffix(lower, "zes"),
		strings.HasSuffix(lower, "ches"),
		strings.HasSuffix(lower, "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss"):
		return word[:len(word)-1]
	}
	return word
}

var uncountable = map[string]bool{
	"inventory": true,
	"stock":     true,
	"data":      true,
	"equipment": true,
	"news":      true,
	"series":    true,
	"status":    true,
}

var irregularSingulars = map[string]string{
	"people":   "person",
	"children": "child",
	"analyses": "analysis",
	"statuses": "status",
	"indices":  "index",
}
