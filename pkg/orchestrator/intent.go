package orchestrator

import (
	"regexp"
	"strings"
)

// Fixed command vocabularies. Wake words come from config; the rest are
// constants with env override considered unnecessary in the field.
var (
	exitWords      = []string{"关闭系统", "退出系统", "关机"}
	interruptWords = []string{"闭嘴", "别说了", "安静", "停止播报"}
	musicKeywords  = []string{"播放", "想要听", "要听"}
	switchWords    = []string{"换首歌", "下一首", "切歌"}
	searchHints    = []string{"天气", "今天", "星期几", "实时", "最新"}
)

var emojiRe = regexp.MustCompile(`[\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{1F900}-\x{1F9FF}\x{1FA70}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}]`)

var punctRe = regexp.MustCompile(`[，。！？、；：,.!?;:\s]+`)

// CleanText strips emoji and surrounding whitespace from a model delta.
func CleanText(text string) string {
	return strings.TrimSpace(emojiRe.ReplaceAllString(text, ""))
}

// StripPunct removes the fixed punctuation set used for keyword and
// wake-word normalization.
func StripPunct(text string) string {
	return punctRe.ReplaceAllString(text, "")
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// IsExit reports a shutdown command.
func IsExit(text string) bool { return containsAny(text, exitWords) }

// IsInterrupt reports a "stop talking" command.
func IsInterrupt(text string) bool { return containsAny(text, interruptWords) }

// HasMusicIntent reports a request to start music.
func HasMusicIntent(text string) bool { return containsAny(text, musicKeywords) }

// IsQuickSwitch reports a next-track command. Matching runs on the
// lowercased, punctuation-stripped text.
func IsQuickSwitch(text string) bool {
	normalized := StripPunct(strings.ToLower(strings.TrimSpace(text)))
	return containsAny(normalized, switchWords)
}

// WantsSearch reports whether the command needs realtime knowledge and
// the search-enabled model.
func WantsSearch(text string) bool { return containsAny(text, searchHints) }
