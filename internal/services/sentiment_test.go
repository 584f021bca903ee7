package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"tubepulse/internal/models"
)

type fakeCounter struct {
	calls int
}

func (f *fakeCounter) Increment() error {
	f.calls++
	return nil
}

func newTestSentimentService(baseURL string, counter UsageCounter) *SentimentService {
	return &SentimentService{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
		model:   "test-model",
		apiKey:  "test-key",
		counter: counter,
	}
}

// geminiReplyWith 构造一个返回指定候选文本的模拟 Gemini 服务器
func geminiReplyWith(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, "/v1beta/models/test-model") {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}

		payload := map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{
					"content": map[string]interface{}{
						"parts": []interface{}{map[string]string{"text": text}},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(payload)
	}))
}

func TestAnalyzeSentiment(t *testing.T) {
	// 模拟带 ```json 围栏的模型输出
	fenced := "```json\n{\"sentiment\":\"positive\",\"confidence\":0.9,\"emotions\":[\"joy\"],\"toxicity\":0.1,\"summary\":\"enthusiastic praise\"}\n```"
	server := geminiReplyWith(t, fenced)
	defer server.Close()

	counter := &fakeCounter{}
	s := newTestSentimentService(server.URL, counter)

	result := s.AnalyzeSentiment(context.Background(), "Great video!")
	if result.Sentiment != "positive" {
		t.Errorf("Expected positive, got %s", result.Sentiment)
	}
	if result.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %f", result.Confidence)
	}
	if len(result.Emotions) != 1 || result.Emotions[0] != "joy" {
		t.Errorf("Unexpected emotions: %v", result.Emotions)
	}
	if counter.calls != 1 {
		t.Errorf("Expected exactly 1 counter increment, got %d", counter.calls)
	}
}

func TestAnalyzeSentimentUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	counter := &fakeCounter{}
	s := newTestSentimentService(server.URL, counter)

	result := s.AnalyzeSentiment(context.Background(), "anything")
	assertNeutralFallback(t, result)
	if counter.calls != 0 {
		t.Errorf("Counter must not be incremented on failure, got %d", counter.calls)
	}
}

func TestAnalyzeSentimentMalformedPayload(t *testing.T) {
	// 模型返回了非 JSON 文本
	server := geminiReplyWith(t, "I cannot analyze this comment, sorry!")
	defer server.Close()

	counter := &fakeCounter{}
	s := newTestSentimentService(server.URL, counter)

	result := s.AnalyzeSentiment(context.Background(), "anything")
	assertNeutralFallback(t, result)
	if counter.calls != 0 {
		t.Errorf("Counter must not be incremented on malformed payload, got %d", counter.calls)
	}
}

func assertNeutralFallback(t *testing.T, result models.SentimentResult) {
	t.Helper()
	if result.Sentiment != "neutral" {
		t.Errorf("Expected neutral, got %s", result.Sentiment)
	}
	if result.Confidence != 0.5 {
		t.Errorf("Expected confidence 0.5, got %f", result.Confidence)
	}
	if len(result.Emotions) != 0 {
		t.Errorf("Expected empty emotions, got %v", result.Emotions)
	}
	if result.Toxicity != 0.0 {
		t.Errorf("Expected toxicity 0.0, got %f", result.Toxicity)
	}
	if result.Summary != "Analysis failed" {
		t.Errorf("Expected 'Analysis failed', got %s", result.Summary)
	}
}

func TestGenerateReply(t *testing.T) {
	server := geminiReplyWith(t, "  Thanks so much, glad you enjoyed it!  ")
	defer server.Close()

	s := newTestSentimentService(server.URL, &fakeCounter{})
	comment := models.Comment{ID: "c1", Text: "Love this channel"}
	sentiment := models.SentimentResult{Sentiment: "positive", Confidence: 0.9}

	reply := s.GenerateReply(context.Background(), comment, sentiment)
	if reply != "Thanks so much, glad you enjoyed it!" {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestGenerateReplyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := newTestSentimentService(server.URL, &fakeCounter{})
	reply := s.GenerateReply(context.Background(), models.Comment{Text: "hi"}, models.SentimentResult{Sentiment: "neutral"})
	if reply != replyFallback {
		t.Errorf("Expected fallback reply, got %q", reply)
	}
}

func TestShouldAutoReply(t *testing.T) {
	s := &SentimentService{}

	cases := []struct {
		name      string
		sentiment models.SentimentResult
		want      bool
	}{
		{"正面高置信度", models.SentimentResult{Sentiment: "positive", Confidence: 0.9}, true},
		{"正面低置信度", models.SentimentResult{Sentiment: "positive", Confidence: 0.4}, false},
		{"负面低毒性", models.SentimentResult{Sentiment: "negative", Toxicity: 0.2}, true},
		{"负面高毒性", models.SentimentResult{Sentiment: "negative", Toxicity: 0.9, Confidence: 0.99}, false},
		{"中性", models.SentimentResult{Sentiment: "neutral", Confidence: 0.5}, true},
	}

	for _, tc := range cases {
		if got := s.ShouldAutoReply(tc.sentiment); got != tc.want {
			t.Errorf("%s: ShouldAutoReply = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestShouldAutoReplyStrict(t *testing.T) {
	// 备选严格策略: 置信度不达阈值时一律不回复
	low := models.SentimentResult{Sentiment: "neutral", Confidence: 0.2}
	if shouldAutoReplyStrict(low, 0.3) {
		t.Error("Expected strict policy to reject below-threshold confidence")
	}
	ok := models.SentimentResult{Sentiment: "neutral", Confidence: 0.5}
	if !shouldAutoReplyStrict(ok, 0.3) {
		t.Error("Expected strict policy to accept neutral above threshold")
	}
}

func TestCleanJSON(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	if got := cleanJSON(in); got != "{\"a\":1}" {
		t.Errorf("cleanJSON = %q", got)
	}
	if got := cleanJSON("{\"a\":1}"); got != "{\"a\":1}" {
		t.Errorf("cleanJSON without fences = %q", got)
	}
}
