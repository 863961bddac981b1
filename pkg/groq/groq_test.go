package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", auth)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error": {"message": "boom"}}`))
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "mixtral-8x7b-32768",
			"choices": []map[string]interface{}{
				{
					"index": 0,
					"message": map[string]string{
						"role":    "assistant",
						"content": content,
					},
					"finish_reason": "stop",
				},
			},
		})
	}))
}

func TestChatCompletion(t *testing.T) {
	server := completionServer(t, http.StatusOK, `{"threat_level": "low"}`)
	defer server.Close()

	t.Setenv("GROQ_API_KEY", "test-key")
	t.Setenv("GROQ_BASE_URL", server.URL)

	client := New()
	content, err := client.ChatCompletion(context.Background(), "system", "user prompt")
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}
	if content != `{"threat_level": "low"}` {
		t.Errorf("unexpected content %q", content)
	}
}

func TestChatCompletionBadStatus(t *testing.T) {
	server := completionServer(t, http.StatusInternalServerError, "")
	defer server.Close()

	t.Setenv("GROQ_API_KEY", "test-key")
	t.Setenv("GROQ_BASE_URL", server.URL)

	client := New()
	if _, err := client.ChatCompletion(context.Background(), "system", "user prompt"); err == nil {
		t.Fatal("expected an error on a non-2xx response")
	}
}

func TestChatCompletionMissingAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	client := New()
	if _, err := client.ChatCompletion(context.Background(), "system", "user prompt"); err == nil {
		t.Fatal("expected an error when the API key is not configured")
	}
}
