package moderation

import "strings"

// quranLexicon is the fixed reference lexicon of high-frequency Quranic
// vocabulary. A transcript containing any of these terms is accepted
// without consulting the semantic classifier.
var quranLexicon = []string{
	"الله", "الرحمن", "الرحيم", "سورة", "آية",
	"قال", "يوم", "كتاب", "الذين", "جنة", "نار", "رب", "الملك", "العرش",
}

// HeuristicIsQuran reports whether the transcript contains any lexicon
// term. Substring matching on case-normalized text; vocabulary outside
// the lexicon falls through to the classifier rather than being rejected.
func HeuristicIsQuran(text string) bool {
	normalized := strings.ToLower(text)
	for _, term := range quranLexicon {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}
