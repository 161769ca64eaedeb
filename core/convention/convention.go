// Package convention derives display defaults from catalog keys.
package convention

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// acronyms are rendered upper-case in labels.
var acronyms = map[string]string{
	"id":  "ID",
	"gst": "GST",
	"pan": "PAN",
	"sku": "SKU",
	"url": "URL",
}

// Label turns an attribute or module key into a display label:
// "unit_price" and "unitPrice" both become "Unit Price".
func Label(key string) string {
	if key == "" {
		return ""
	}
	words := strings.Split(strcase.ToSnake(key), "_")
	out := words[:0]
	for _, w := range words {
		if w == "" {
			continue
		}
		if a, ok := acronyms[w]; ok {
			out = append(out, a)
			continue
		}
		out = append(out, strings.ToUpper(w[:1])+w[1:])
	}
	return strings.Join(out, " ")
}
