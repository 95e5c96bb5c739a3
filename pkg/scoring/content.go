package scoring

import (
	"regexp"
	"strings"
)

// ContentType classifies a post for the content bonus
type ContentType string

const (
	ContentPost     ContentType = "post"
	ContentThread   ContentType = "thread"
	ContentVideo    ContentType = "video"
	ContentMeme     ContentType = "meme"
	ContentAnalysis ContentType = "analysis"
)

var contentBonuses = map[ContentType]float64{
	ContentPost:     1.0,
	ContentThread:   1.5,
	ContentVideo:    2.0,
	ContentMeme:     1.2,
	ContentAnalysis: 1.8,
}

// Bonus returns the multiplicative bonus for the content type
func (c ContentType) Bonus() float64 {
	if b, ok := contentBonuses[c]; ok {
		return b
	}
	return 1.0
}

var (
	// "1/", "1/5", "1." or "1)" followed by whitespace; "1.5x" is not a marker
	numberedPrefix = regexp.MustCompile(`^\s*\d+\s*(/\d*|[.)])(\s|$)`)
	wordPattern    = regexp.MustCompile(`[a-z0-9']+`)

	threadEmoji    = "🧵"
	videoKeywords  = []string{"video", "watch", "youtube", "clip", "🎥", "📹", "▶️"}
	analysisTerms  = []string{"analysis", "breakdown", "deep dive", "research", "data"}
	slangWords     = map[string]bool{"lol": true, "lmao": true, "gm": true, "wagmi": true, "ngmi": true, "ser": true, "fren": true, "based": true}
	memeEmojiLimit = 3
)

// DetectContentType applies the classification rules in priority order:
// thread, video, analysis, meme, then post. The first matching rule wins.
func DetectContentType(text string) ContentType {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "thread") || strings.Contains(text, threadEmoji) || numberedPrefix.MatchString(lower) {
		return ContentThread
	}
	if containsAny(lower, videoKeywords) {
		return ContentVideo
	}
	if containsAny(lower, analysisTerms) {
		return ContentAnalysis
	}
	if countEmoji(text) > memeEmojiLimit || hasSlang(lower) {
		return ContentMeme
	}
	return ContentPost
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasSlang(lower string) bool {
	for _, w := range wordPattern.FindAllString(lower, -1) {
		if slangWords[w] {
			return true
		}
	}
	return false
}

func countEmoji(text string) int {
	n := 0
	for _, r := range text {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	}
	return false
}
