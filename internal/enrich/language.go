package enrich

import (
	"strings"
	"unicode"

	"github.com/RadhiFadlillah/whatlanggo"
)

// Script ranges that map straight to a dominant language for this harvest's
// purposes. Coarse on purpose; the precise detector handles the rest.
var scriptLangs = []struct {
	ranges *unicode.RangeTable
	code   string
}{
	{unicode.Devanagari, "HI"},
	{unicode.Cyrillic, "RU"},
	{unicode.Arabic, "AR"},
	{unicode.Han, "ZH"},
	{unicode.Hangul, "KO"},
	{unicode.Hiragana, "JA"},
	{unicode.Katakana, "JA"},
	{unicode.Thai, "TH"},
}

// Keyword hints for Latin-script text that names its own language.
var keywordLangs = map[string]string{
	"hindi":     "HI",
	"india":     "HI",
	"indian":    "HI",
	"english":   "EN",
	"german":    "DE",
	"deutsch":   "DE",
	"turkish":   "TR",
	"turkce":    "TR",
	"spanish":   "ES",
	"espanol":   "ES",
	"french":    "FR",
	"francais":  "FR",
	"russian":   "RU",
	"portugues": "PT",
}

// DetectBasic classifies language from channel-level text alone using a
// script census plus keyword hints. Returns "" when there is no usable text,
// and falls back to "EN" for plain Latin text with no hint.
func DetectBasic(texts ...string) string {
	combined := strings.ToLower(strings.TrimSpace(strings.Join(texts, "\n")))
	if combined == "" {
		return ""
	}

	counts := make(map[string]int)
	latin := 0
	for _, r := range combined {
		if unicode.Is(unicode.Latin, r) {
			latin++
			continue
		}
		for _, sl := range scriptLangs {
			if unicode.Is(sl.ranges, r) {
				counts[sl.code]++
				break
			}
		}
	}

	best, bestN := "", 0
	for code, n := range counts {
		if n > bestN {
			best, bestN = code, n
		}
	}
	// A non-Latin script that dominates the text wins outright.
	if best != "" && bestN*2 >= latin {
		return best
	}

	for word, code := range keywordLangs {
		if strings.Contains(combined, word) {
			return code
		}
	}
	if latin > 0 {
		return "EN"
	}
	return best
}

// DetectPrecise classifies each text independently with the trigram detector
// and combines by majority vote. Ties fall back to the basic heuristic over
// the same corpus.
func DetectPrecise(texts ...string) string {
	votes := make(map[string]int)
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		code := iso1(whatlanggo.DetectLang(text))
		if code == "" {
			continue
		}
		votes[code]++
	}
	if len(votes) == 0 {
		return DetectBasic(texts...)
	}

	best, bestN, tied := "", 0, false
	for code, n := range votes {
		switch {
		case n > bestN:
			best, bestN, tied = code, n, false
		case n == bestN:
			tied = true
		}
	}
	if tied {
		if basic := DetectBasic(texts...); basic != "" {
			return basic
		}
	}
	return best
}

func iso1(lang whatlanggo.Lang) string {
	if lang == -1 {
		return ""
	}
	return strings.ToUpper(lang.Iso6391())
}
