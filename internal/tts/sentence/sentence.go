// Package sentence splits narration text into sentences so long input can be
// synthesized and played piece by piece.
package sentence

import (
	"strings"
	"unicode"
)

// Splitter finds sentence boundaries in plain text. Latin text needs a
// capital letter after the stop; Hangul and other scripts without case only
// need whitespace.
type Splitter struct {
	// MinLength is the shortest piece, in runes, kept on its own. Shorter
	// pieces are joined to the next sentence.
	MinLength int

	abbreviations map[string]bool
}

// NewSplitter creates a Splitter that knows common English abbreviations.
func NewSplitter() *Splitter {
	return &Splitter{
		MinLength:     2,
		abbreviations: makeAbbreviationMap(),
	}
}

var defaultSplitter = NewSplitter()

// Split splits text with the default Splitter.
func Split(text string) []string {
	return defaultSplitter.Split(text)
}

// Split returns the sentences of text, trimmed, in order. Text without a
// boundary comes back as a single sentence; blank text gives none.
func (s *Splitter) Split(text string) []string {
	runes := []rune(strings.Join(strings.Fields(text), " "))

	var (
		sentences []string
		carry     string
		start     int
	)
	emit := func(piece string) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			return
		}
		if carry != "" {
			piece = carry + " " + piece
			carry = ""
		}
		if len([]rune(piece)) < s.MinLength {
			carry = piece
			return
		}
		sentences = append(sentences, piece)
	}

	for i := 0; i < len(runes); i++ {
		if !isStop(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && isStop(runes[end]) {
			end++
		}
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if s.isBoundary(runes, i, end) {
			emit(string(runes[start:end]))
			start = end
		}
		i = end - 1
	}
	emit(string(runes[start:]))

	if carry != "" {
		if n := len(sentences); n > 0 {
			sentences[n-1] += " " + carry
		} else {
			sentences = append(sentences, carry)
		}
	}
	return sentences
}

// isBoundary reports whether the stop run runes[pos:end] ends a sentence.
func (s *Splitter) isBoundary(runes []rune, pos, end int) bool {
	if end >= len(runes) {
		return true
	}
	if !unicode.IsSpace(runes[end]) {
		// "3.14", "U.S.A" and "피카츄!!요" stay together, full-width stops
		// are never followed by a space.
		return isFullWidthStop(runes[end-1]) || isFullWidthStop(runes[pos])
	}

	run := string(runes[pos:end])
	if strings.Count(run, ".") >= 3 || strings.Contains(run, "…") {
		return false
	}

	if runes[pos] == '.' {
		word := strings.ToLower(wordBefore(runes, pos))
		if s.abbreviations[word] || isInitialism(word) {
			return false
		}
	}

	next := end
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}
	r := runes[next]
	switch {
	case unicode.IsUpper(r), unicode.IsDigit(r), isOpener(r):
		return true
	case unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r):
		return true
	}
	return runes[pos] == '!' || runes[pos] == '?'
}

// wordBefore returns the word that ends at the stop at pos, without it.
func wordBefore(runes []rune, pos int) string {
	start := pos
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return string(runes[start:pos])
}

// isInitialism reports whether word is single letters joined by dots, as
// in "u.s" or "e.g". Measurements like "0.4m" do not qualify.
func isInitialism(word string) bool {
	word = strings.TrimLeftFunc(word, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	parts := strings.Split(word, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		r := []rune(p)
		if len(r) != 1 || !unicode.IsLetter(r[0]) {
			return false
		}
	}
	return true
}

func isStop(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}

func isFullWidthStop(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』':
		return true
	}
	return false
}

func isOpener(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '“', '‘', '「', '『':
		return true
	}
	return false
}

func makeAbbreviationMap() map[string]bool {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st",
		"inc", "ltd", "co", "corp", "vs", "etc", "cf", "al",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"no", "vol", "ft", "lbs", "oz", "kg", "km", "cm", "mm",
	}
	m := make(map[string]bool, len(abbrevs))
	for _, a := range abbrevs {
		m[a] = true
	}
	return m
}
