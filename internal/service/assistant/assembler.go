package assistant

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SentenceAssembler buffers streamed text and releases it one complete
// sentence at a time. A sentence ends at '.', '!' or '?' followed by
// whitespace. Deltas are concatenated verbatim.
type SentenceAssembler struct {
	buf strings.Builder
}

// Push appends delta and returns every sentence it completed.
func (a *SentenceAssembler) Push(delta string) []string {
	if delta == "" {
		return nil
	}
	a.buf.WriteString(delta)

	pending := a.buf.String()
	var sentences []string
	for {
		end := sentenceEnd(pending)
		if end < 0 {
			break
		}
		if s := strings.TrimSpace(pending[:end]); s != "" {
			sentences = append(sentences, s)
		}
		pending = pending[end:]
	}

	a.buf.Reset()
	a.buf.WriteString(pending)
	return sentences
}

// Flush returns the unterminated remainder, if it has content, and resets the buffer.
func (a *SentenceAssembler) Flush() string {
	rest := strings.TrimSpace(a.buf.String())
	a.buf.Reset()
	return rest
}

// Pending reports whether non-whitespace text is buffered.
func (a *SentenceAssembler) Pending() bool {
	return strings.TrimSpace(a.buf.String()) != ""
}

// sentenceEnd returns the byte offset just past the first terminator that is
// followed by whitespace, or -1.
func sentenceEnd(s string) int {
	for i, r := range s {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(s) {
			return -1
		}
		following, _ := utf8.DecodeRuneInString(s[next:])
		if unicode.IsSpace(following) {
			return next
		}
	}
	return -1
}
