package volume

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const cnDigits = "一二三四五六七八九十百两零〇"

var (
	setRe   = regexp.MustCompile(`音量\s*调到\s*([0-9]{1,3})`)
	setCnRe = regexp.MustCompile(`音量\s*调到\s*([` + cnDigits + `]{1,4})`)

	increaseRe    = regexp.MustCompile(`(音量|声音).*(调大|调高|增大|提高)\s*([0-9]{1,3})`)
	decreaseRe    = regexp.MustCompile(`(音量|声音).*(调小|调低|降低|减小)\s*([0-9]{1,3})`)
	increaseRe2   = regexp.MustCompile(`(调大|调高|增大|提高).*(音量|声音)\s*([0-9]{1,3})`)
	decreaseRe2   = regexp.MustCompile(`(调小|调低|降低|减小).*(音量|声音)\s*([0-9]{1,3})`)
	increaseCnRe  = regexp.MustCompile(`(音量|声音).*(调大|调高|增大|提高)\s*([` + cnDigits + `]{1,4})`)
	decreaseCnRe  = regexp.MustCompile(`(音量|声音).*(调小|调低|降低|减小)\s*([` + cnDigits + `]{1,4})`)
	increaseCnRe2 = regexp.MustCompile(`(调大|调高|增大|提高).*(音量|声音)\s*([` + cnDigits + `]{1,4})`)
	decreaseCnRe2 = regexp.MustCompile(`(调小|调低|降低|减小).*(音量|声音)\s*([` + cnDigits + `]{1,4})`)
)

var (
	upKeywords = []string{
		"增大音量", "音量调高", "音量调大", "调大音量", "调高音量", "声音调大",
		"调大声音", "增大声音", "调高", "提高", "调大", "增大", "加大", "大点",
	}
	downKeywords = []string{
		"降低音量", "音量调低", "音量调小", "音量减小", "调低音量",
		"调小音量", "降低声音", "声音调小", "调小声音", "声音调低",
		"调低声音", "减小声音", "降低", "调低", "调小", "减小", "小一点", "小点",
	}
)

// Handler recognizes spoken volume commands and drives the mixer.
type Handler struct {
	mixer *Mixer
	log   *zap.Logger
}

// NewHandler creates a volume command handler.
func NewHandler(mixer *Mixer, log *zap.Logger) *Handler {
	return &Handler{mixer: mixer, log: log}
}

// Handle parses text as a volume command and executes it. Returns true
// when the text matched, whether or not the mixer call succeeded. speak
// is only invoked when the audible floor is free.
func (h *Handler) Handle(text string, ttsBusy, musicBusy bool, speak func(ack string)) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	maybeSpeak := func(ack string) {
		if ttsBusy || musicBusy || speak == nil {
			return
		}
		speak(ack)
	}

	if percent, ok := ParseSetPercent(text); ok {
		if err := h.mixer.SetPercent(percent); err != nil {
			h.log.Warn("volume set failed", zap.Error(err))
		} else {
			h.log.Info("volume set", zap.Int("percent", percent))
		}
		maybeSpeak(fmt.Sprintf("好的，音量已调到%d%%", percent))
		return true
	}

	if percent, up, down, ok := ParseAdjustPercent(text); ok && (up || down) {
		if err := h.mixer.AdjustByPercent(percent, up); err != nil {
			h.log.Warn("volume adjust failed", zap.Error(err))
		} else {
			h.log.Info("volume adjusted", zap.Int("percent", percent), zap.Bool("up", up))
		}
		if up {
			maybeSpeak(fmt.Sprintf("好的，音量已调大%d%%", percent))
		} else {
			maybeSpeak(fmt.Sprintf("好的，音量已调小%d%%", percent))
		}
		return true
	}

	if up, down, ok := ParseAdjust(text); ok && (up || down) {
		if err := h.mixer.Step(up); err != nil {
			h.log.Warn("volume step failed", zap.Error(err))
		}
		if up {
			maybeSpeak(fmt.Sprintf("好的，音量已调大%d%%", StepPercent))
		} else {
			maybeSpeak(fmt.Sprintf("好的，音量已调小%d%%", StepPercent))
		}
		return true
	}

	return false
}

// ParseSetPercent matches absolute commands like 音量调到30 / 音量调到三十.
func ParseSetPercent(text string) (int, bool) {
	if m := setRe.FindStringSubmatch(text); m != nil {
		n, ok := parseNumberToken(m[1])
		return clampPercent(n), ok
	}
	if m := setCnRe.FindStringSubmatch(text); m != nil {
		n, ok := parseNumberToken(m[1])
		return clampPercent(n), ok
	}
	return 0, false
}

// ParseAdjustPercent matches relative commands carrying a number.
func ParseAdjustPercent(text string) (percent int, up, down, ok bool) {
	for _, re := range []*regexp.Regexp{increaseRe, increaseRe2, increaseCnRe, increaseCnRe2} {
		if m := re.FindStringSubmatch(text); m != nil {
			n, ok := parseNumberToken(m[3])
			return clampPercent(n), true, false, ok
		}
	}
	for _, re := range []*regexp.Regexp{decreaseRe, decreaseRe2, decreaseCnRe, decreaseCnRe2} {
		if m := re.FindStringSubmatch(text); m != nil {
			n, ok := parseNumberToken(m[3])
			return clampPercent(n), false, true, ok
		}
	}
	return 0, false, false, false
}

// ParseAdjust matches keyword-only relative commands.
func ParseAdjust(text string) (up, down, ok bool) {
	if !strings.Contains(text, "音量") && !strings.Contains(text, "声音") {
		return false, false, false
	}
	for _, k := range upKeywords {
		if strings.Contains(text, k) {
			return true, false, true
		}
	}
	for _, k := range downKeywords {
		if strings.Contains(text, k) {
			return false, true, true
		}
	}
	return false, false, false
}

func parseNumberToken(token string) (int, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(token); err == nil {
		return n, true
	}
	return ParseChineseNumber(token)
}

// ParseChineseNumber reads numerals over 零一二三四五六七八九十百 with the
// usual 十 compositions, up to 100.
func ParseChineseNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "两", "二")
	s = strings.ReplaceAll(s, "〇", "零")
	if s == "百" || s == "一百" || strings.HasPrefix(s, "一百") {
		return 100, true
	}
	if strings.Contains(s, "十") {
		parts := strings.SplitN(s, "十", 2)
		tens := 1
		if parts[0] != "" {
			tens = cnDigit(parts[0])
			if tens < 0 {
				return 0, false
			}
		}
		ones := 0
		if len(parts) > 1 && parts[1] != "" {
			ones = cnDigit(parts[1])
			if ones < 0 {
				return 0, false
			}
		}
		return tens*10 + ones, true
	}
	if v := cnDigit(s); v >= 0 {
		return v, true
	}
	return 0, false
}

func cnDigit(s string) int {
	switch s {
	case "零":
		return 0
	case "一":
		return 1
	case "二":
		return 2
	case "三":
		return 3
	case "四":
		return 4
	case "五":
		return 5
	case "六":
		return 6
	case "七":
		return 7
	case "八":
		return 8
	case "九":
		return 9
	}
	return -1
}
