// Package langdetect identifies the language of extracted page text.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// minTextLen guards against classifying page numbers and stray header
// fragments; detection on very short text is noise.
const minTextLen = 40

var candidates = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Swedish,
	lingua.Polish,
	lingua.Russian,
	lingua.Chinese,
	lingua.Japanese,
}

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

// Detect returns the lowercase ISO 639-1 code of the dominant language in
// text and the detector's confidence for it. ok is false when the text is
// too short or no candidate language fits.
func Detect(text string) (code string, confidence float64, ok bool) {
	text = strings.TrimSpace(text)
	if len(text) < minTextLen {
		return "", 0, false
	}

	once.Do(func() {
		// Model loading is expensive, so build the detector once and keep
		// it for the life of the process.
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidates...).
			Build()
	})

	lang, found := detector.DetectLanguageOf(text)
	if !found {
		return "", 0, false
	}
	confidence = detector.ComputeLanguageConfidence(text, lang)
	return strings.ToLower(lang.IsoCode639_1().String()), confidence, true
}
