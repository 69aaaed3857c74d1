package orchestrator

import (
	"strings"
	"testing"
)

func collect(emitted *[]string) func(string) {
	return func(text string) { *emitted = append(*emitted, text) }
}

func TestChunkerFirstFlushThreshold(t *testing.T) {
	var emitted []string
	ck := newChunker(false, collect(&emitted))

	ck.Add("这是一段没有标点的长文本")
	if len(emitted) != 0 {
		t.Fatal("must hold below the first threshold without punctuation")
	}
	ck.Add(strings.Repeat("字", 25))
	if len(emitted) != 1 {
		t.Fatalf("expected first flush past 30 runes, got %v", emitted)
	}
}

func TestChunkerSearchThresholdSmaller(t *testing.T) {
	var emitted []string
	ck := newChunker(true, collect(&emitted))

	ck.Add(strings.Repeat("字", 16))
	if len(emitted) != 1 {
		t.Fatalf("search turns flush at 15 runes, got %v", emitted)
	}
}

func TestChunkerFlushOnPunctuation(t *testing.T) {
	var emitted []string
	ck := newChunker(false, collect(&emitted))

	ck.Add("好的")
	ck.Add("。")
	if len(emitted) != 1 || emitted[0] != "好的。" {
		t.Fatalf("expected immediate flush on punctuation, got %v", emitted)
	}
}

func TestChunkerStripsControlFragments(t *testing.T) {
	var emitted []string
	ck := newChunker(false, collect(&emitted))

	ck.Add("好的，这就放[PLAY: 周杰伦]。")
	if len(emitted) != 1 || strings.Contains(emitted[0], "[") {
		t.Fatalf("control fragment leaked into TTS chunk: %v", emitted)
	}
}

func TestChunkerFlushResidual(t *testing.T) {
	var emitted []string
	ck := newChunker(false, collect(&emitted))

	ck.Add("尾巴")
	ck.Flush()
	if len(emitted) != 1 || emitted[0] != "尾巴" {
		t.Fatalf("expected residual flush, got %v", emitted)
	}
}

func TestLLMTurnSentinelOrdering(t *testing.T) {
	llm := newFakeLLM("今天晴。", "适合出门。")
	o := newTestOrchestrator(t, Deps{LLM: llm})

	ctx, _ := o.state.Session()
	o.runLLMTurn(ctx, "今天天气", false)

	texts := drainTexts(o)
	if len(texts) < 2 {
		t.Fatalf("expected chunks plus sentinel, got %v", texts)
	}
	if texts[len(texts)-1] != EndSentinel {
		t.Errorf("sentinel must be strictly last, got %v", texts)
	}
	for _, msg := range texts[:len(texts)-1] {
		if msg == EndSentinel {
			t.Error("sentinel appeared before the end")
		}
	}
}

func TestLLMTurnPlayDirective(t *testing.T) {
	llm := newFakeLLM("好的，为你播放。[PLAY: 周杰伦]")
	mus := &fakeMusic{}
	o := newTestOrchestrator(t, Deps{LLM: llm, Music: mus})

	ctx, _ := o.state.Session()
	o.runLLMTurn(ctx, "放首周杰伦", false)

	mus.mu.Lock()
	defer mus.mu.Unlock()
	if len(mus.searches) != 1 || mus.searches[0] != "周杰伦" {
		t.Errorf("expected play directive to trigger search, got %v", mus.searches)
	}
	for _, msg := range drainTexts(o) {
		if strings.Contains(msg, "[PLAY") {
			t.Errorf("directive leaked to TTS: %q", msg)
		}
	}
}

func TestLLMTurnStopDirective(t *testing.T) {
	llm := newFakeLLM("好的，已停止。[STOP]")
	mus := &fakeMusic{playing: true}
	o := newTestOrchestrator(t, Deps{LLM: llm, Music: mus})

	ctx, _ := o.state.Session()
	o.runLLMTurn(ctx, "别放了", false)

	mus.mu.Lock()
	defer mus.mu.Unlock()
	if mus.stops != 1 {
		t.Errorf("expected stop directive to stop music, got %d stops", mus.stops)
	}
}

func TestLLMTurnCancelledSessionStaysQuiet(t *testing.T) {
	llm := newFakeLLM("不该", "出现。")
	o := newTestOrchestrator(t, Deps{LLM: llm})

	ctx, _ := o.state.Session()
	o.state.CancelSession()
	o.runLLMTurn(ctx, "测试", false)

	if texts := drainTexts(o); len(texts) != 0 {
		t.Errorf("cancelled turn must not enqueue, got %v", texts)
	}
}
