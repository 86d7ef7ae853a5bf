package service

import "strings"

var languageKeywords = []struct {
	code     string
	label    string
	keywords []string
}{
	{"en", "English", []string{"en", "english", "english (us)", "anglais"}},
	{"fr", "French", []string{"fr", "french", "français", "francais"}},
	{"es", "Spanish", []string{"es", "spanish", "español", "espanol"}},
	{"ar", "Arabic", []string{"ar", "arabic", "العربية"}},
	{"zh", "Chinese", []string{"zh", "chinese", "中文", "mandarin"}},
	{"de", "German", []string{"de", "german", "deutsch"}},
	{"it", "Italian", []string{"it", "italian", "italiano"}},
	{"pt", "Portuguese", []string{"pt", "portuguese", "português", "portugues"}},
	{"vi", "Vietnamese", []string{"vi", "vietnamese", "tiếng việt", "tieng viet"}},
	{"hi", "Hindi", []string{"hi", "hindi", "हिन्दी"}},
	{"pl", "Polish", []string{"pl", "polish", "polski"}},
	{"tr", "Turkish", []string{"tr", "turkish", "türkçe", "turkce"}},
}

var scoringDialects = map[string]string{
	"fr": "fr-fr",
	"en": "en-us",
	"es": "es-es",
}

// NormalizeLanguageCode maps a language name or code to its ISO 639-1 code.
// Unknown values are returned lower-cased.
func NormalizeLanguageCode(value string) string {
	raw := strings.ToLower(strings.TrimSpace(value))
	for _, lang := range languageKeywords {
		for _, kw := range lang.keywords {
			if raw == kw {
				return lang.code
			}
		}
	}
	return raw
}

// LanguageLabel returns the English display name for a language name or code.
func LanguageLabel(value string) string {
	code := NormalizeLanguageCode(value)
	for _, lang := range languageKeywords {
		if lang.code == code {
			return lang.label
		}
	}
	if code == "" {
		return ""
	}
	r := []rune(code)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// ScoringDialect maps a learning language to a pronunciation scoring dialect.
// Values already shaped like a dialect (fr-fr, en-us) pass through.
func ScoringDialect(value string) string {
	raw := strings.ToLower(strings.TrimSpace(value))
	if len(raw) == 5 && raw[2] == '-' {
		return raw
	}
	if d, ok := scoringDialects[NormalizeLanguageCode(raw)]; ok {
		return d
	}
	return "fr-fr"
}

// DialectLanguage returns the language code of a scoring dialect (fr-fr → fr).
func DialectLanguage(dialect string) string {
	code, _, _ := strings.Cut(strings.ToLower(dialect), "-")
	return code
}
