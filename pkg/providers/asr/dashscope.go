package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const (
	dialTimeout  = 10 * time.Second
	binaryFrame  = 3200
	framePacing  = 5 * time.Millisecond
	maxFrameSize = 1 << 20
)

// Client speaks the DashScope duplex recognition protocol: one run-task,
// paced binary PCM frames, one finish-task, then events until
// task-finished.
type Client struct {
	apiKey     string
	wsURL      string
	model      string
	sampleRate int
}

// NewClient creates a recognition client.
func NewClient(apiKey, wsURL, model string, sampleRate int) *Client {
	return &Client{
		apiKey:     apiKey,
		wsURL:      wsURL,
		model:      model,
		sampleRate: sampleRate,
	}
}

type event struct {
	Header struct {
		Event string `json:"event"`
	} `json:"header"`
	Payload struct {
		Output struct {
			Sentence struct {
				Text string `json:"text"`
			} `json:"sentence"`
		} `json:"output"`
	} `json:"payload"`
}

// Recognize streams one utterance and returns the last non-empty
// sentence text. Dial and write failures and a task-failed event come
// back as an error, which the caller treats like an empty result; a
// connection that closes after finish-task ends with whatever was
// collected.
func (c *Client) Recognize(ctx context.Context, pcm []byte) (string, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + c.apiKey}},
	})
	if err != nil {
		return "", fmt.Errorf("asr dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(maxFrameSize)

	taskID := newTaskID()
	runTask := map[string]interface{}{
		"header": map[string]interface{}{
			"task_id":   taskID,
			"action":    "run-task",
			"streaming": "duplex",
		},
		"payload": map[string]interface{}{
			"task_group": "audio",
			"task":       "asr",
			"function":   "recognition",
			"model":      c.model,
			"parameters": map[string]interface{}{
				"format":      "pcm",
				"sample_rate": c.sampleRate,
			},
			"input": map[string]interface{}{},
		},
	}
	if err := wsjson.Write(ctx, conn, runTask); err != nil {
		return "", fmt.Errorf("asr run-task: %w", err)
	}

	for i := 0; i < len(pcm); i += binaryFrame {
		end := i + binaryFrame
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, pcm[i:end]); err != nil {
			return "", fmt.Errorf("asr audio frame: %w", err)
		}
		time.Sleep(framePacing)
	}

	finishTask := map[string]interface{}{
		"header": map[string]interface{}{
			"task_id": taskID,
			"action":  "finish-task",
		},
		"payload": map[string]interface{}{
			"input": map[string]interface{}{},
		},
	}
	if err := wsjson.Write(ctx, conn, finishTask); err != nil {
		return "", fmt.Errorf("asr finish-task: %w", err)
	}

	var res string
	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			// Server closed; whatever was collected stands.
			return res, nil
		}
		if msgType != websocket.MessageText {
			continue
		}
		var ev event
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}
		switch ev.Header.Event {
		case "result-generated":
			if text := ev.Payload.Output.Sentence.Text; text != "" {
				res = text
			}
		case "task-finished":
			return res, nil
		case "task-failed":
			return "", fmt.Errorf("asr task failed")
		}
	}
}

func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
