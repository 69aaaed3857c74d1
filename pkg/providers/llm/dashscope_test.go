package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sseServer(t *testing.T, gotModel *string, deltas []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-DashScope-SSE") != "enable" {
			t.Error("missing SSE header")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("bad auth header: %q", got)
		}
		var body struct {
			Model string `json:"model"`
			Input struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			} `json:"input"`
			Parameters struct {
				IncrementalOutput bool `json:"incremental_output"`
				EnableSearch      bool `json:"enable_search"`
			} `json:"parameters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		*gotModel = body.Model
		if !body.Parameters.IncrementalOutput {
			t.Error("incremental_output must be set")
		}
		if len(body.Input.Messages) != 2 || body.Input.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %v", body.Input.Messages)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, d := range deltas {
			payload, _ := json.Marshal(map[string]interface{}{
				"output": map[string]interface{}{"text": d},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func TestStreamDeltasInOrder(t *testing.T) {
	var gotModel string
	srv := sseServer(t, &gotModel, []string{"今天", "晴。", "适合出门。"})
	defer srv.Close()

	client := NewClient("sk-test", srv.URL, "qwen-turbo", "qwen-plus")

	var deltas []string
	full, err := client.Stream(context.Background(), "今天天气", false, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if full != "今天晴。适合出门。" {
		t.Errorf("unexpected full text: %q", full)
	}
	if len(deltas) != 3 || deltas[0] != "今天" {
		t.Errorf("unexpected deltas: %v", deltas)
	}
	if gotModel != "qwen-turbo" {
		t.Errorf("expected the fast model, got %q", gotModel)
	}
}

func TestStreamSearchPicksSearchModel(t *testing.T) {
	var gotModel string
	srv := sseServer(t, &gotModel, []string{"晴。"})
	defer srv.Close()

	client := NewClient("sk-test", srv.URL, "qwen-turbo", "qwen-plus")
	if _, err := client.Stream(context.Background(), "今天天气", true, func(string) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if gotModel != "qwen-plus" {
		t.Errorf("expected the search model, got %q", gotModel)
	}
}

func TestStreamOnDeltaAborts(t *testing.T) {
	var gotModel string
	srv := sseServer(t, &gotModel, []string{"一", "二", "三"})
	defer srv.Close()

	client := NewClient("sk-test", srv.URL, "qwen-turbo", "qwen-plus")

	calls := 0
	_, err := client.Stream(context.Background(), "p", false, func(string) error {
		calls++
		if calls == 2 {
			return context.Canceled
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected the abort error")
	}
	if calls != 2 {
		t.Errorf("expected the stream to stop at the abort, got %d calls", calls)
	}
}

func TestStreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("sk-bad", srv.URL, "qwen-turbo", "qwen-plus")
	if _, err := client.Stream(context.Background(), "p", false, func(string) error { return nil }); err == nil {
		t.Fatal("expected an error on non-200")
	}
}

func TestStreamSkipsMalformedLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, "data: {\"output\":{\"text\":\"好\"}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	client := NewClient("sk-test", srv.URL, "qwen-turbo", "qwen-plus")
	full, err := client.Stream(context.Background(), "p", false, func(string) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	if full != "好" {
		t.Errorf("malformed frame must be skipped, got %q", full)
	}
}
