package speech

import "strings"

// localeByLanguage maps the short language codes used by the product UI to
// the BCP-47 locales the platform engines expect. Unknown codes fall back to
// US English rather than failing the call.
var localeByLanguage = map[string]string{
	"en":    "en-US",
	"en-gb": "en-GB",
	"en-au": "en-AU",
	"es":    "es-ES",
	"fr":    "fr-FR",
	"de":    "de-DE",
	"pt":    "pt-BR",
	"it":    "it-IT",
	"ja":    "ja-JP",
	"ko":    "ko-KR",
	"zh":    "zh-CN",
	"hi":    "hi-IN",
	"ar":    "ar-SA",
	"ru":    "ru-RU",
	"nl":    "nl-NL",
	"pl":    "pl-PL",
}

const defaultLocale = "en-US"

// RecognitionLocale resolves the capture locale for a language code.
func RecognitionLocale(language string) string {
	if l, ok := localeByLanguage[strings.ToLower(strings.TrimSpace(language))]; ok {
		return l
	}
	return defaultLocale
}

// SynthesisLocale resolves the playback locale for a language code.
func SynthesisLocale(language string) string {
	return RecognitionLocale(language)
}
