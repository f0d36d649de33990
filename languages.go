package polytlai

import "strings"

const (
	// DefaultSourceLang is assumed when a request leaves SourceLang empty.
	DefaultSourceLang = "en"
	// DefaultTargetLang is assumed when a request leaves TargetLang empty.
	DefaultTargetLang = "zh_CN"
)

// LanguageNames maps locale codes to human-readable names for display.
var LanguageNames = map[string]string{
	"en_US": "English (United States)",
	"en_GB": "English (United Kingdom)",
	"de_DE": "German (Germany)",
	"es_ES": "Spanish (Spain)",
	"es_MX": "Spanish (Mexico)",
	"fr_FR": "French (France)",
	"it_IT": "Italian (Italy)",
	"ja_JP": "Japanese (Japan)",
	"ko_KR": "Korean (South Korea)",
	"pt_BR": "Portuguese (Brazil)",
	"ru_RU": "Russian (Russia)",
	"zh_CN": "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",
	"ar_SA": "Arabic (Saudi Arabia)",
	"hi_IN": "Hindi (India)",
	"vi_VN": "Vietnamese (Vietnam)",
}

// ShortCodeToLocale maps short language codes to full locale codes.
var ShortCodeToLocale = map[string]string{
	"en": "en_US",
	"de": "de_DE",
	"es": "es_ES",
	"fr": "fr_FR",
	"it": "it_IT",
	"ja": "ja_JP",
	"ko": "ko_KR",
	"pt": "pt_BR",
	"ru": "ru_RU",
	"zh": "zh_CN",
	"ar": "ar_SA",
	"hi": "hi_IN",
	"vi": "vi_VN",
}

// promptLanguages holds the plain names used inside prompts.
var promptLanguages = map[string]string{
	"en": "English",
	"de": "German",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"pt": "Portuguese",
	"ru": "Russian",
	"zh": "Chinese",
	"ar": "Arabic",
	"hi": "Hindi",
	"vi": "Vietnamese",
}

// GetLanguageName returns the display name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	langCode = NormalizeLocale(langCode)
	if name, ok := LanguageNames[langCode]; ok {
		return name
	}
	if locale, ok := ShortCodeToLocale[strings.ToLower(langCode)]; ok {
		if name, ok := LanguageNames[locale]; ok {
			return name
		}
	}
	return langCode
}

// PromptLanguage returns the plain language name used in prompts
// ("English", "Chinese"). Traditional Chinese is named explicitly.
func PromptLanguage(langCode string) string {
	langCode = NormalizeLocale(langCode)
	if strings.EqualFold(langCode, "zh_TW") {
		return "Traditional Chinese"
	}
	if name, ok := promptLanguages[normalizeBaseLang(langCode)]; ok {
		return name
	}
	return langCode
}

// NormalizeLocale converts a language code to the standard format (e.g., "es-ES" → "es_ES").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(strings.TrimSpace(langCode), "-", "_")
}

// normalizeBaseLang extracts the base language code (e.g., "en" from "en_US").
func normalizeBaseLang(lang string) string {
	return strings.ToLower(strings.Split(lang, "_")[0])
}
