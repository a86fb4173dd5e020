package analysis

import (
	"strings"
	"unicode"
)

// PiracyKeywords is the watch list matched against English text.
var PiracyKeywords = []string{
	"torrent", "illegal download", "piracy", "bootleg", "streaming",
	"free download", "warez", "camrip", "dvdrip", "hdtorrent",
	"crack", "cracked version", "serial key", "license key",
	"illegal streaming", "unauthorized", "leaked", "rip",
	"seed", "peer-to-peer", "P2P", "magnet link", "proxy",
	"pirate bay", "1337x", "yify", "RARBG", "katcr",
	"streaming site", "free movies", "APK download", "ISO file",
	"keygen", "fake license", "free software", "unlicensed",
	"bypass activation", "license bypass", "copyright violation", "pirated", "rarbg",
}

// Tokenize lowercases text and splits it into runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// MatchKeywords returns the PiracyKeywords found in text, in list order,
// lowercased and without duplicates. Multi-word keywords must appear as a
// contiguous token sequence.
func MatchKeywords(text string) []string {
	return matchKeywords(Tokenize(text), PiracyKeywords)
}

func matchKeywords(tokens []string, keywords []string) []string {
	out := []string{}
	if len(tokens) == 0 {
		return out
	}
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		key := strings.ToLower(kw)
		if seen[key] {
			continue
		}
		needle := Tokenize(kw)
		if len(needle) == 0 || !containsSequence(tokens, needle) {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

func containsSequence(tokens, needle []string) bool {
	for i := 0; i+len(needle) <= len(tokens); i++ {
		match := true
		for j := range needle {
			if tokens[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
