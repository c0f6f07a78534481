// Package startup performs the once-per-process initialization that
// original_source/src/sys/go/worker.rs guards behind its i18n.load flag:
// the first worker to come up loads the enabled-language table from
// Postgres and the on-disk translation/template trees, then every later
// worker reuses the same immutable stores. Grounded on worker.rs's
// "SELECT lang_id, lang, code, name FROM lang WHERE enable" query followed
// by I18n::load_lang.
package startup

import (
	"context"
	"fmt"

	"github.com/tryteex/fcgiapp/internal/dbconn"
	"github.com/tryteex/fcgiapp/internal/template"
	"github.com/tryteex/fcgiapp/internal/translation"
)

// LoadLanguages runs the enabled-languages query and returns the result in
// the shape internal/translation.Load expects.
func LoadLanguages(ctx context.Context, db *dbconn.DB) ([]translation.Lang, error) {
	rows := db.Query(ctx, "SELECT lang_id, lang, code, name FROM lang WHERE enable ORDER BY lang_id")
	langs := make([]translation.Lang, 0, len(rows))
	for _, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("startup: unexpected lang row shape: %v", row)
		}
		id, err := toUint8(row[0])
		if err != nil {
			return nil, fmt.Errorf("startup: lang_id: %w", err)
		}
		iso, ok := row[1].(string)
		if !ok {
			return nil, fmt.Errorf("startup: lang column is not a string")
		}
		native, ok := row[2].(string)
		if !ok {
			return nil, fmt.Errorf("startup: code column is not a string")
		}
		display, ok := row[3].(string)
		if !ok {
			return nil, fmt.Errorf("startup: name column is not a string")
		}
		langs = append(langs, translation.Lang{ID: id, ISOCode: iso, NativeName: native, DisplayName: display})
	}
	return langs, nil
}

func toUint8(v any) (uint8, error) {
	switch n := v.(type) {
	case int64:
		return uint8(n), nil
	case int32:
		return uint8(n), nil
	case int16:
		return uint8(n), nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

// Stores bundles the two process-wide, read-only tables loaded once at
// startup and shared by every worker.
type Stores struct {
	Translations *translation.Store
	Templates    *template.Store
}

// Load runs the language query and the two directory walks, in the order
// worker.rs performs them under its i18n mutex: languages first (so
// translation file names can be matched against enabled ISO codes), then
// translations, then view templates.
func Load(ctx context.Context, db *dbconn.DB, dir string) (*Stores, error) {
	langs, err := LoadLanguages(ctx, db)
	if err != nil {
		return nil, err
	}
	trStore, err := translation.Load(dir, langs)
	if err != nil {
		return nil, fmt.Errorf("startup: load translations: %w", err)
	}
	tplStore, err := template.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("startup: load templates: %w", err)
	}
	return &Stores{Translations: trStore, Templates: tplStore}, nil
}
