package domain

import (
	"strings"
	"unicode"
)

// IDSeparator joins the normalized domain and the product in a prospect id.
const IDSeparator = "_"

// NormalizeDomain removes every whitespace rune and lower-cases the rest.
func NormalizeDomain(domain string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, domain)
	return strings.ToLower(stripped)
}

// NormalizeID derives the storage key of a prospect. The product is expected
// to be case-folded already; it is used verbatim.
func NormalizeID(domain string, product Product) string {
	return NormalizeDomain(domain) + IDSeparator + string(product)
}
