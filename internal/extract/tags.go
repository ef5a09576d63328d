package extract

import "strings"

var stopWords = map[string]struct{}{
	"compra":    {},
	"venta":     {},
	"otros":     {},
	"servicios": {},
	"empleo":    {},
}

// separators are replaced in order; " de " must run before " en la ".
var separators = []string{"/", " a ", " de ", " en la ", " "}

// Tags derives the lower-cased tag list from subcategory and category names.
func Tags(subcategory, category string) []string {
	words := strings.ToLower(subcategory + "-" + category)
	words = strings.ReplaceAll(words, "autos", "transporte")
	for _, sep := range separators {
		words = strings.ReplaceAll(words, sep, "-")
	}
	var tags []string
	for _, tag := range strings.Split(words, "-") {
		if tag == "" {
			continue
		}
		if _, stop := stopWords[tag]; stop {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
