package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
	"tubepulse/internal/models"
	"tubepulse/internal/utils"
)

const (
	defaultGeminiBase  = "https://generativelanguage.googleapis.com"
	defaultGeminiModel = "gemini-2.0-flash"

	// 回复生成失败时的固定兜底文案
	replyFallback = "Thank you for your comment! 😊"
)

// UsageCounter 分类器调用量计数，只在一次成功的分类调用后自增
type UsageCounter interface {
	Increment() error
}

// SentimentService Gemini 情感分析客户端
// 分析失败永远不向调用方抛错，退化为中性默认结果，保证流水线不被阻塞
type SentimentService struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
	counter UsageCounter
}

var sentimentService *SentimentService

// GetSentimentService 获取情感分析服务单例
func GetSentimentService() *SentimentService {
	if sentimentService == nil {
		baseURL := os.Getenv("GEMINI_BASE_URL")
		if baseURL == "" {
			baseURL = defaultGeminiBase
		}
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			model = defaultGeminiModel
		}

		sentimentService = &SentimentService{
			client:  &http.Client{Timeout: 20 * time.Second},
			baseURL: baseURL,
			model:   model,
			apiKey:  os.Getenv("GEMINI_API_KEY"),
			counter: &GeminiUsageCounter{},
		}
	}
	return sentimentService
}

// Gemini generateContent 的请求/响应载荷
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generateContent 调用 Gemini 并返回首个候选文本
func (s *SentimentService) generateContent(ctx context.Context, prompt string) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求 Gemini 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("Gemini 返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini 响应没有候选内容")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// cleanJSON 去掉模型输出里常见的 ```json 围栏
func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

// neutralFallback 分析失败时的默认结果
func neutralFallback() models.SentimentResult {
	return models.SentimentResult{
		Sentiment:  "neutral",
		Confidence: 0.5,
		Emotions:   []string{},
		Toxicity:   0.0,
		Summary:    "Analysis failed",
	}
}

// AnalyzeSentiment 分析评论情感
// 任何失败（网络、非 JSON 载荷、结构错误）都返回中性默认结果且不计入用量
func (s *SentimentService) AnalyzeSentiment(ctx context.Context, text string) models.SentimentResult {
	prompt := fmt.Sprintf(`Analyze the sentiment of this comment and provide a JSON response:
{
  "sentiment": "positive|negative|neutral",
  "confidence": 0.0-1.0,
  "emotions": ["emotion1", "emotion2"],
  "toxicity": 0.0-1.0,
  "summary": "brief analysis"
}

Comment: "%s"

Only respond with valid JSON.`, text)

	raw, err := s.generateContent(ctx, prompt)
	if err != nil {
		log.Printf("情感分析失败: %v", err)
		return neutralFallback()
	}

	var result models.SentimentResult
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &result); err != nil {
		log.Printf("情感分析结果解析失败: %v", err)
		return neutralFallback()
	}
	if result.Sentiment == "" {
		log.Printf("情感分析结果缺少 sentiment 字段")
		return neutralFallback()
	}
	if result.Emotions == nil {
		result.Emotions = []string{}
	}

	if err := s.counter.Increment(); err != nil {
		// 计数失败只记日志，分析结果本身有效
		log.Printf("更新 Gemini 用量计数失败: %v", err)
	}
	return result
}

// replyTone 回复语气，按情感分桶做穷举选择
type replyTone int

const (
	toneAppreciative replyTone = iota // 正面评论: 真诚感谢
	toneDeescalating                  // 高毒性负面评论: 专业降温
	toneHelpful                       // 低毒性负面评论: 理解并提供帮助
	toneFriendly                      // 中性评论: 友好互动
)

func toneFor(sentiment models.SentimentResult) replyTone {
	switch sentiment.Sentiment {
	case "positive":
		return toneAppreciative
	case "negative":
		if sentiment.Toxicity > 0.7 {
			return toneDeescalating
		}
		return toneHelpful
	default:
		return toneFriendly
	}
}

// GenerateReply 根据情感生成回复文案，失败时返回固定兜底文案，从不抛错
func (s *SentimentService) GenerateReply(ctx context.Context, comment models.Comment, sentiment models.SentimentResult) string {
	text := utils.PlainText(comment.Text)

	var prompt string
	switch toneFor(sentiment) {
	case toneAppreciative:
		prompt = fmt.Sprintf(`Generate a warm, appreciative reply to: "%s"`, text)
	case toneDeescalating:
		prompt = fmt.Sprintf(`Generate a professional, de-escalating reply to: "%s"`, text)
	case toneHelpful:
		prompt = fmt.Sprintf(`Generate a helpful, understanding reply to: "%s"`, text)
	default:
		prompt = fmt.Sprintf(`Generate a friendly, engaging reply to: "%s"`, text)
	}
	prompt += "\n\nLimit to 200 characters, friendly, professional, no quotes."

	reply, err := s.generateContent(ctx, prompt)
	if err != nil {
		log.Printf("生成回复失败: %v", err)
		return replyFallback
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return replyFallback
	}
	return reply
}

// ShouldAutoReply 自动回复策略（首个命中即生效）:
//   - 正面且置信度 > 0.6 回复
//   - 负面且毒性 < 0.7 回复（高毒性评论不接茬）
//   - 中性一律回复
func (s *SentimentService) ShouldAutoReply(sentiment models.SentimentResult) bool {
	if sentiment.Sentiment == "positive" && sentiment.Confidence > 0.6 {
		return true
	}
	if sentiment.Sentiment == "negative" && sentiment.Toxicity < 0.7 {
		return true
	}
	if sentiment.Sentiment == "neutral" {
		return true
	}
	return false
}

// shouldAutoReplyStrict 备选严格策略: 所有分桶都额外要求置信度达到
// SENTIMENT_THRESHOLD。当前不在默认决策路径上，阈值仅由此变体消费
func shouldAutoReplyStrict(sentiment models.SentimentResult, threshold float64) bool {
	if sentiment.Confidence < threshold {
		return false
	}
	if sentiment.Sentiment == "positive" && sentiment.Confidence > 0.6 {
		return true
	}
	if sentiment.Sentiment == "negative" && sentiment.Toxicity < 0.7 {
		return true
	}
	return sentiment.Sentiment == "neutral"
}
