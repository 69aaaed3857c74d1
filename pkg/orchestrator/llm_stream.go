package orchestrator

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aibox-labs/aibox-orchestrator/pkg/metrics"
)

// Chunk thresholds, in runes. The first flush is small so TTS first
// audio comes fast; later flushes aim for one sentence per chunk.
const (
	firstChunkFast   = 30
	firstChunkSearch = 15
	laterChunk       = 80
)

var (
	flushPunctRe    = regexp.MustCompile("[，。！？,.!?\n]")
	controlFragRe   = regexp.MustCompile(`\[[^\]]*\]`)
	playDirectiveRe = regexp.MustCompile(`(?i)\[PLAY:\s*([^\]]*)\]`)
)

// chunker accumulates LLM deltas and flushes TTS-sized chunks. Control
// fragments in square brackets never reach the synthesizer.
type chunker struct {
	firstThreshold int
	firstSent      bool
	buf            strings.Builder
	emit           func(text string)
}

func newChunker(enableSearch bool, emit func(string)) *chunker {
	threshold := firstChunkFast
	if enableSearch {
		threshold = firstChunkSearch
	}
	return &chunker{firstThreshold: threshold, emit: emit}
}

// Add appends one cleaned delta and flushes when the delta carries
// sentence punctuation or the buffer clears the active threshold.
func (c *chunker) Add(delta string) {
	c.buf.WriteString(delta)
	threshold := laterChunk
	if !c.firstSent {
		threshold = c.firstThreshold
	}
	if flushPunctRe.MatchString(delta) || len([]rune(c.buf.String())) > threshold {
		c.flush()
	}
}

// Flush sends whatever remains.
func (c *chunker) Flush() {
	c.flush()
}

func (c *chunker) flush() {
	text := strings.TrimSpace(controlFragRe.ReplaceAllString(c.buf.String(), ""))
	c.buf.Reset()
	if text == "" {
		return
	}
	c.firstSent = true
	c.emit(text)
}

// runLLMTurn is one conversational turn: stream the completion, feed the
// chunker into the TTS queue, close the turn with the end sentinel and
// act on trailing control tokens. Bound to one session context; a
// cancelled session exits quietly.
func (o *Orchestrator) runLLMTurn(ctx context.Context, prompt string, enableSearch bool) {
	o.state.FlushText()
	start := time.Now()
	if enableSearch {
		o.log.Info("llm: realtime query, search-enabled model selected")
	}

	ck := newChunker(enableSearch, func(text string) {
		if ctx.Err() == nil {
			o.state.EnqueueText(text)
		}
	})

	full, err := o.llm.Stream(ctx, prompt, enableSearch, func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if clean := CleanText(delta); clean != "" {
			ck.Add(clean)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log.Error("llm stream failed", zap.Error(err))
		metrics.Errors.WithLabelValues("llm").Inc()
		if o.music != nil {
			o.music.Unduck()
		}
		return
	}

	ck.Flush()
	if ctx.Err() != nil {
		return
	}
	o.state.EnqueueText(EndSentinel)
	metrics.LLMDuration.Observe(time.Since(start).Seconds())
	o.log.Info("llm stream done", zap.Duration("took", time.Since(start)))

	if o.music == nil {
		return
	}
	if strings.Contains(full, "[STOP]") {
		o.music.Stop()
	}
	if m := playDirectiveRe.FindStringSubmatch(full); m != nil {
		target := strings.TrimSpace(m[1])
		o.log.Info("llm play directive", zap.String("target", target))
		o.music.SearchAndPlay(target)
	}
}
