package evaluator

import (
	"strings"

	"github.com/goodsign/monday"
)

// mondayLocales maps normalized locale codes to monday locales.
var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"de_de": monday.LocaleDeDE,
	"de_at": monday.LocaleDeDE,
	"de_ch": monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_fr": monday.LocaleFrFR,
	"fr_ca": monday.LocaleFrCA,
	"es":    monday.LocaleEsES,
	"es_es": monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"it_it": monday.LocaleItIT,
	"pt":    monday.LocalePtPT,
	"pt_pt": monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"nl":    monday.LocaleNlNL,
	"nl_nl": monday.LocaleNlNL,
	"nl_be": monday.LocaleNlBE,
	"ru":    monday.LocaleRuRU,
	"ru_ru": monday.LocaleRuRU,
	"uk":    monday.LocaleUkUA,
	"uk_ua": monday.LocaleUkUA,
	"pl":    monday.LocalePlPL,
	"pl_pl": monday.LocalePlPL,
	"cs":    monday.LocaleCsCZ,
	"cs_cz": monday.LocaleCsCZ,
	"sv":    monday.LocaleSvSE,
	"sv_se": monday.LocaleSvSE,
	"fi":    monday.LocaleFiFI,
	"fi_fi": monday.LocaleFiFI,
	"da":    monday.LocaleDaDK,
	"da_dk": monday.LocaleDaDK,
	"nb":    monday.LocaleNbNO,
	"nb_no": monday.LocaleNbNO,
	"tr":    monday.LocaleTrTR,
	"tr_tr": monday.LocaleTrTR,
	"ja":    monday.LocaleJaJP,
	"ja_jp": monday.LocaleJaJP,
	"zh":    monday.LocaleZhCN,
	"zh_cn": monday.LocaleZhCN,
	"zh_tw": monday.LocaleZhTW,
	"ko":    monday.LocaleKoKR,
	"ko_kr": monday.LocaleKoKR,
}

// getMondayLocale converts a locale string like "de-DE" or "fr" to a
// monday.Locale, falling back to the language part and then to en-US.
func getMondayLocale(locale string) monday.Locale {
	locale = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "-", "_"))

	if loc, ok := mondayLocales[locale]; ok {
		return loc
	}

	if lang, _, found := strings.Cut(locale, "_"); found {
		if loc, ok := mondayLocales[lang]; ok {
			return loc
		}
	}

	return monday.LocaleEnUS
}
