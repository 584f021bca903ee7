package utils

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			htmlrenderer.WithHardWraps(),
			htmlrenderer.WithXHTML(),
		),
	)
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// RenderMarkdown 将 Gemini 返回的 Markdown 文本渲染为安全 HTML
// Gemini 的分析摘要经常带有 Markdown 标记，仪表盘展示前统一走这里
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return template.HTML(strictPolicy.Sanitize(source)) // Fallback
	}

	// Sanitize HTML
	return template.HTML(ugcPolicy.SanitizeBytes(buf.Bytes()))
}

// PlainText 剥离 HTML 标签并反转义实体
// YouTube API 的 textDisplay 是 HTML，送入分类器前先拍平为纯文本
func PlainText(source string) string {
	text := strictPolicy.Sanitize(source)
	return strings.TrimSpace(html.UnescapeString(text))
}
