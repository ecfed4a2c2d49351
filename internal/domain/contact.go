package domain

import (
	"regexp"
	"sort"
	"strings"
)

// Contact extraction: emails and telegram handles pulled from free-form
// channel/video text. Everything here is pure string work, no I/O.

var (
	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Anti-spam variants: "name [at] domain [dot] com", "name (at) domain (dot) com"
	emailObfuscatedRE = regexp.MustCompile(
		`(?i)([A-Za-z0-9._%+\-]+)\s*(?:\[at\]|\(at\)|\sat\s)\s*([A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*)\s*(?:\[dot\]|\(dot\)|\sdot\s)\s*([A-Za-z]{2,})`)

	telegramLinkRE   = regexp.MustCompile(`(?i)(?:https?://)?t(?:elegram)?\.me/([A-Za-z0-9_]{4,32})`)
	telegramHandleRE = regexp.MustCompile(`(^|[^\w@/.])@([A-Za-z0-9_]{4,32})`)
	// "SomeHandle (telegram)" mention form
	telegramLabeledRE = regexp.MustCompile(`(?i)\b([A-Za-z0-9_]{4,32})\s*\(\s*(?:telegram|tg)\s*\)`)
)

// ExtractEmails pulls all email addresses, including de-obfuscated anti-spam
// variants, out of the given text blobs. The result is lower-cased,
// deduplicated and sorted.
func ExtractEmails(blobs ...string) []string {
	seen := make(map[string]struct{})
	for _, blob := range blobs {
		if blob == "" {
			continue
		}
		for _, m := range emailRE.FindAllString(blob, -1) {
			seen[strings.ToLower(m)] = struct{}{}
		}
		for _, m := range emailObfuscatedRE.FindAllStringSubmatch(blob, -1) {
			seen[strings.ToLower(m[1]+"@"+m[2]+"."+m[3])] = struct{}{}
		}
	}
	return sortedSet(seen)
}

// MergeEmails unions existing and newly extracted addresses, preserving the
// dedup/casing/ordering invariant.
func MergeEmails(existing, extracted []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extracted))
	for _, e := range existing {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			seen[e] = struct{}{}
		}
	}
	for _, e := range extracted {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			seen[e] = struct{}{}
		}
	}
	return sortedSet(seen)
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ExtractTelegram scans text blobs for a telegram contact and returns the
// canonical handle form: lower-cased, leading "@", no URL prefix. Link
// matches win over bare mentions; the first recognized contact is returned.
// Empty string means no contact found.
func ExtractTelegram(blobs ...string) string {
	for _, blob := range blobs {
		if blob == "" {
			continue
		}
		if m := telegramLinkRE.FindStringSubmatch(blob); m != nil {
			if h := NormalizeTelegramHandle(m[1]); h != "" {
				return h
			}
		}
	}
	for _, blob := range blobs {
		if blob == "" {
			continue
		}
		if m := telegramHandleRE.FindStringSubmatch(blob); m != nil {
			if h := NormalizeTelegramHandle(m[2]); h != "" {
				return h
			}
		}
		if m := telegramLabeledRE.FindStringSubmatch(blob); m != nil {
			if h := NormalizeTelegramHandle(m[1]); h != "" {
				return h
			}
		}
	}
	return ""
}

// telegram reserves these path segments; they are never user handles.
var telegramReserved = map[string]struct{}{
	"joinchat":    {},
	"share":       {},
	"addstickers": {},
}

// NormalizeTelegramHandle converts any accepted handle form to the canonical
// "@lowercase" representation. Returns empty string for reserved or
// malformed input.
func NormalizeTelegramHandle(raw string) string {
	h := strings.TrimSpace(raw)
	h = strings.TrimPrefix(h, "@")
	h = strings.ToLower(h)
	if len(h) < 4 || len(h) > 32 {
		return ""
	}
	if _, reserved := telegramReserved[h]; reserved {
		return ""
	}
	return "@" + h
}
