package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tryteex/fcgiapp/internal/cacheval"
	"github.com/tryteex/fcgiapp/internal/htmlesc"
)

var (
	repeatRe = regexp.MustCompile(`(?s)<\?\[([A-Za-z0-9_]+)\?>(.*?)<\?\1\]\?>`)
	simpleRe = regexp.MustCompile(`<\?=([A-Za-z0-9_]+)(?:\.([A-Za-z0-9_]+))?\?>`)
)

// Render substitutes markers in content against data (spec.md §4.1):
//
//	<?=KEY?>          -> data[KEY] stringified and HTML-escaped
//	<?[KEY?>...<?KEY]?> -> repeated once per item of a lang_vector entry,
//	                     with <?=KEY.FIELD?> resolved per item inside the block
//
// Any marker whose key isn't present in data is left in the output verbatim
// (spec.md §4.1 edge case), rather than silently dropped.
func Render(content string, data map[string]cacheval.Entry) string {
	withBlocks := repeatRe.ReplaceAllStringFunc(content, func(match string) string {
		sub := repeatRe.FindStringSubmatch(match)
		key, body := sub[1], sub[2]
		entry, ok := data[key]
		if !ok {
			return match
		}
		lv, ok := entry.LangVectorValue()
		if !ok {
			return match
		}
		var out strings.Builder
		for _, item := range lv.Items {
			out.WriteString(renderLangItemBlock(key, body, item, item.LangID == lv.Selected))
		}
		return out.String()
	})

	return simpleRe.ReplaceAllStringFunc(withBlocks, func(match string) string {
		sub := simpleRe.FindStringSubmatch(match)
		key := sub[1]
		entry, ok := data[key]
		if !ok {
			return match
		}
		return htmlesc.Escape(stringify(entry))
	})
}

// renderLangItemBlock fills one lang_vector repeat-block iteration, field
// mapping and escaping grounded on original_source/src/app/view.rs's
// View::out: .lang_id and .lang are substituted raw (they're an id and an
// ISO code, never attacker-controlled HTML), .name runs through
// Action::htmlencode, and .selected substitutes the literal string
// "selected" rather than a boolean flag, matching the HTML attribute it's
// meant to sit inside (`<option <?=KEY.selected?>>`).
func renderLangItemBlock(key, body string, item cacheval.LangItem, selected bool) string {
	re := regexp.MustCompile(`<\?=` + regexp.QuoteMeta(key) + `\.([A-Za-z0-9_]+)\?>`)
	return re.ReplaceAllStringFunc(body, func(match string) string {
		sub := re.FindStringSubmatch(match)
		switch sub[1] {
		case "lang_id":
			return fmt.Sprintf("%d", item.LangID)
		case "lang":
			return item.ISOCode
		case "code":
			return item.NativeName
		case "name":
			return htmlesc.Escape(item.DisplayName)
		case "display_name":
			return htmlesc.Escape(item.DisplayName)
		case "selected":
			if selected {
				return "selected"
			}
			return ""
		default:
			return match
		}
	})
}

func stringify(e cacheval.Entry) string {
	switch e.Kind() {
	case cacheval.KindNone:
		return ""
	case cacheval.KindU8:
		v, _ := e.U8Value()
		return fmt.Sprintf("%d", v)
	case cacheval.KindI64:
		v, _ := e.I64Value()
		return fmt.Sprintf("%d", v)
	case cacheval.KindU64:
		v, _ := e.U64Value()
		return fmt.Sprintf("%d", v)
	case cacheval.KindF64:
		v, _ := e.F64Value()
		return fmt.Sprintf("%g", v)
	case cacheval.KindBool:
		if e.IsTruthyBool() {
			return "1"
		}
		return ""
	case cacheval.KindString:
		v, _ := e.StringValue()
		return v
	default:
		return ""
	}
}
