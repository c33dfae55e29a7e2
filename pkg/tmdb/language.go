package tmdb

// languageNames maps ISO 639-1 codes to display names for the languages that
// actually show up in the catalog. The same table is applied both when
// building enrichment results and when preparing datastore payloads.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"ru": "Russian",
	"pt": "Portuguese",
	"tr": "Turkish",
	"hi": "Hindi",
	"ar": "Arabic",
	"nl": "Dutch",
	"sv": "Swedish",
	"no": "Norwegian",
	"da": "Danish",
	"fi": "Finnish",
	"pl": "Polish",
	"hu": "Hungarian",
	"cs": "Czech",
	"th": "Thai",
}

// LanguageName resolves a 2-letter language code to its display name.
// Unmapped codes pass through unchanged; a missing code maps to "Unknown".
func LanguageName(code string) string {
	if code == "" {
		return "Unknown"
	}
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
