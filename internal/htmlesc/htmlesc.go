// Package htmlesc implements the exact HTML-entity escaping original_source
// uses for every translated string and template substitution
// (src/app/lang.rs Lang::htmlencode): ampersand first, then quote, apostrophe,
// less-than, greater-than, in that fixed order.
package htmlesc

import "strings"

func Escape(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "\"", "&quot;")
	text = strings.ReplaceAll(text, "'", "&apos;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
