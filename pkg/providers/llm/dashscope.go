package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 60 * time.Second

// systemPrompt keeps the model's music directives on a short leash: play
// tokens only on explicit requests, never on ordinary answers.
const systemPrompt = "你是智能助手。仅在用户【明确要求播放音乐】（如“放首歌”、“听周杰伦”）时，才在回复末尾添加 [PLAY: 歌名]（随机播放用 [PLAY: RANDOM]）。" +
	"如果用户要求停止，加上 [STOP]。" +
	"回答天气、新闻、闲聊等普通问题时，【严禁】添加任何播放指令。"

// Client streams DashScope text-generation completions over SSE.
type Client struct {
	apiKey      string
	url         string
	modelFast   string
	modelSearch string
	httpc       *http.Client
}

// NewClient creates an SSE streaming client.
func NewClient(apiKey, url, modelFast, modelSearch string) *Client {
	return &Client{
		apiKey:      apiKey,
		url:         url,
		modelFast:   modelFast,
		modelSearch: modelSearch,
		httpc:       &http.Client{Timeout: requestTimeout},
	}
}

type chunk struct {
	Output struct {
		Text string `json:"text"`
	} `json:"output"`
}

// Stream issues one completion request and feeds every incremental text
// delta to onDelta in order. Returns the accumulated full text. onDelta
// returning an error aborts the stream with that error.
func (c *Client) Stream(ctx context.Context, prompt string, enableSearch bool, onDelta func(delta string) error) (string, error) {
	model := c.modelFast
	if enableSearch {
		model = c.modelSearch
	}

	payload := map[string]interface{}{
		"model": model,
		"input": map[string]interface{}{
			"messages": []map[string]string{
				{"role": "system", "content": systemPrompt},
				{"role": "user", "content": prompt},
			},
		},
		"parameters": map[string]interface{}{
			"result_format":      "text",
			"incremental_output": true,
			"enable_search":      enableSearch,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-DashScope-SSE", "enable")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody interface{}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return "", fmt.Errorf("llm error (status %d): %v", resp.StatusCode, errBody)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var ck chunk
		if err := json.Unmarshal([]byte(data), &ck); err != nil {
			continue
		}
		if ck.Output.Text == "" {
			continue
		}
		full.WriteString(ck.Output.Text)
		if err := onDelta(ck.Output.Text); err != nil {
			return full.String(), err
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("llm stream read: %w", err)
	}

	return full.String(), nil
}
