package assistant

import "unicode"

// Language tags attached to messages.
const (
	LanguageEnglish = "en"
	LanguageUrdu    = "ur"
)

const urduShareThreshold = 0.3

// DetectLanguage tags text as Urdu when more than 30% of its letters fall in
// the Arabic script block (U+0600..U+06FF), otherwise as English.
func DetectLanguage(text string) string {
	var arabic, letters int
	for _, r := range text {
		if r >= 0x0600 && r <= 0x06FF {
			arabic++
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters > 0 && float64(arabic)/float64(letters) > urduShareThreshold {
		return LanguageUrdu
	}
	return LanguageEnglish
}

func languageName(tag string) string {
	if tag == LanguageUrdu {
		return "Urdu"
	}
	return "English"
}
