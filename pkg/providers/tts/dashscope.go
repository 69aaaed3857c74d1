package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/aibox-labs/aibox-orchestrator/pkg/orchestrator"
)

const (
	dialTimeout      = 10 * time.Second
	taskStartTimeout = 5 * time.Second
	finishTimeout    = 5 * time.Second
	maxFrameSize     = 1 << 20
)

// Client opens DashScope speech-synthesis streams. One stream accepts
// incremental continue-task text and emits binary PCM frames until
// finish-task drains it.
type Client struct {
	apiKey     string
	wsURL      string
	model      string
	voice      string
	sampleRate int
	volume     int
}

// NewClient creates a synthesis client.
func NewClient(apiKey, wsURL, model, voice string, sampleRate, volume int) *Client {
	return &Client{
		apiKey:     apiKey,
		wsURL:      wsURL,
		model:      model,
		voice:      voice,
		sampleRate: sampleRate,
		volume:     volume,
	}
}

type event struct {
	Header struct {
		Event string `json:"event"`
	} `json:"header"`
}

type stream struct {
	conn   *websocket.Conn
	taskID string
	done   chan struct{}
}

// Open dials, issues run-task and blocks until the upstream task has
// started. onAudio receives PCM frames on the receiver goroutine; a nil
// frame marks end of audio and is suppressed when ctx was cancelled.
func (c *Client) Open(ctx context.Context, onAudio func(pcm []byte)) (orchestrator.TTSStream, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + c.apiKey}},
	})
	if err != nil {
		return nil, fmt.Errorf("tts dial: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	s := &stream{
		conn:   conn,
		taskID: strings.ReplaceAll(uuid.NewString(), "-", ""),
		done:   make(chan struct{}),
	}

	started := make(chan struct{})
	var startOnce sync.Once

	go func() {
		defer close(s.done)
		defer func() {
			if ctx.Err() == nil {
				onAudio(nil)
			}
		}()
		for {
			msgType, payload, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if msgType == websocket.MessageBinary {
				if ctx.Err() == nil {
					onAudio(payload)
				}
				continue
			}
			var ev event
			if err := json.Unmarshal(payload, &ev); err != nil {
				continue
			}
			switch ev.Header.Event {
			case "task-started":
				startOnce.Do(func() { close(started) })
			case "task-finished", "task-failed":
				return
			}
		}
	}()

	runTask := map[string]interface{}{
		"header": map[string]interface{}{
			"task_id":   s.taskID,
			"action":    "run-task",
			"streaming": "duplex",
		},
		"payload": map[string]interface{}{
			"task_group": "audio",
			"task":       "tts",
			"function":   "SpeechSynthesizer",
			"model":      c.model,
			"parameters": map[string]interface{}{
				"text_type":   "PlainText",
				"voice":       c.voice,
				"format":      "pcm",
				"sample_rate": c.sampleRate,
				"volume":      c.volume,
				"enable_ssml": false,
			},
			"input": map[string]interface{}{},
		},
	}
	if err := wsjson.Write(ctx, conn, runTask); err != nil {
		conn.Close(websocket.StatusAbnormalClosure, "run-task failed")
		return nil, fmt.Errorf("tts run-task: %w", err)
	}

	select {
	case <-started:
	case <-time.After(taskStartTimeout):
		conn.Close(websocket.StatusNormalClosure, "task-started timeout")
		return nil, orchestrator.ErrTaskStartTimeout
	case <-ctx.Done():
		conn.Close(websocket.StatusNormalClosure, "cancelled")
		return nil, ctx.Err()
	}

	return s, nil
}

// Send pushes one text chunk into the running task.
func (s *stream) Send(ctx context.Context, text string) error {
	continueTask := map[string]interface{}{
		"header": map[string]interface{}{
			"task_id":   s.taskID,
			"action":    "continue-task",
			"streaming": "duplex",
		},
		"payload": map[string]interface{}{
			"input": map[string]interface{}{"text": text},
		},
	}
	return wsjson.Write(ctx, s.conn, continueTask)
}

// Finish signals end of input and waits for the receiver to drain the
// remaining audio.
func (s *stream) Finish(ctx context.Context) error {
	finishTask := map[string]interface{}{
		"header": map[string]interface{}{
			"task_id":   s.taskID,
			"action":    "finish-task",
			"streaming": "duplex",
		},
		"payload": map[string]interface{}{
			"input": map[string]interface{}{},
		},
	}
	err := wsjson.Write(ctx, s.conn, finishTask)
	select {
	case <-s.done:
	case <-time.After(finishTimeout):
	case <-ctx.Done():
	}
	s.conn.Close(websocket.StatusNormalClosure, "")
	return err
}

// Close aborts the stream.
func (s *stream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "aborted")
}
