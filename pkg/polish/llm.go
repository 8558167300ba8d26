package polish

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/vanch007/voiceflow-sub001/pkg/llm"
	"github.com/vanch007/voiceflow-sub001/pkg/logging"
	"github.com/vanch007/voiceflow-sub001/pkg/redact"
	"github.com/vanch007/voiceflow-sub001/pkg/resilience"
)

// Scene prompts steer the model toward the right register. Keys match
// the scene identifiers carried in session start messages.
var scenePrompts = map[string]string{
	"general": `你是一个语音转文字的后处理助手。请对以下语音识别结果进行润色：
1. 修正明显的语音识别错误
2. 删除口语化的语气词（嗯、啊、那个等）
3. 添加适当的标点符号
4. 保持原意，不要添加或删除实质内容

直接输出润色后的文本，不要任何解释。`,

	"coding": `你是一个编程场景的语音转文字助手。请润色以下语音识别结果：
1. 识别并正确格式化代码相关术语（变量名、函数名、技术术语）
2. 修正常见的编程术语识别错误
3. 删除口语化表达
4. 保持技术准确性

直接输出润色后的文本，不要任何解释。`,

	"writing": `你是一个写作场景的语音转文字助手。请润色以下语音识别结果：
1. 修正语法错误和不通顺的表达
2. 优化句子结构，使其更加书面化
3. 添加适当的标点符号
4. 保持原意和风格

直接输出润色后的文本，不要任何解释。`,

	"social": `你是一个社交聊天场景的语音转文字助手。请润色以下语音识别结果：
1. 保持口语化和轻松的风格
2. 修正明显的识别错误
3. 适当保留一些表达情感的语气词
4. 添加适当的标点和表情提示

直接输出润色后的文本，不要任何解释。`,
}

// GlossaryEntry replaces a domain term the recognizer keeps getting
// wrong. Replacements run before the model sees the text.
type GlossaryEntry struct {
	Term          string `mapstructure:"term"`
	Replacement   string `mapstructure:"replacement"`
	CaseSensitive bool   `mapstructure:"case_sensitive"`
}

// LLMConfig controls the model-backed polisher.
type LLMConfig struct {
	Scene        string
	CustomPrompt string
	Glossary     []GlossaryEntry
	MaxAttempts  int
	Timeout      time.Duration
}

func (c LLMConfig) withDefaults() LLMConfig {
	if c.Scene == "" {
		c.Scene = "general"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// LLMPolisher rewrites transcripts with a chat model. Any failure,
// including an open breaker, falls back to rule-based polishing so a
// final transcript is never lost to a flaky backend.
type LLMPolisher struct {
	client   llm.Client
	fallback Polisher
	cfg      LLMConfig
	prompt   string
	logger   *slog.Logger
}

func NewLLMPolisher(client llm.Client, cfg LLMConfig) *LLMPolisher {
	cfg = cfg.withDefaults()
	prompt := cfg.CustomPrompt
	if prompt == "" {
		if p, ok := scenePrompts[cfg.Scene]; ok {
			prompt = p
		} else {
			prompt = scenePrompts["general"]
		}
	}
	return &LLMPolisher{
		client:   client,
		fallback: NewRulePolisher(),
		cfg:      cfg,
		prompt:   prompt,
		logger:   logging.NewComponentLogger(nil, "polish_llm"),
	}
}

func (p *LLMPolisher) Name() string { return "llm" }

func (p *LLMPolisher) Polish(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	text = applyGlossary(text, p.cfg.Glossary)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	out, err := llm.Retry(ctx, llm.RetryConfig{
		MaxAttempts: p.cfg.MaxAttempts,
		IsRetryable: retryablePolishError,
	}, func(ctx context.Context) (string, error) {
		return p.client.Complete(ctx, []llm.Message{
			{Role: "system", Content: p.prompt},
			{Role: "user", Content: text},
		})
	})
	out = strings.TrimSpace(out)
	if err == nil && out != "" {
		p.logger.Info("llm_polish_applied",
			"scene", p.cfg.Scene,
			"text", redact.Snippet(out, 30))
		return out, nil
	}
	if err != nil {
		p.logger.Warn("llm_polish_fallback",
			"scene", p.cfg.Scene,
			"error", err.Error())
	}
	return p.fallback.Polish(ctx, text)
}

// An open breaker or a rate limit will not clear between attempts of
// the same transcript, so fall back to rules immediately.
func retryablePolishError(err error) bool {
	if errors.Is(err, llm.ErrBreakerOpen) || resilience.IsRateLimit(err) {
		return false
	}
	return llm.DefaultIsRetryable(err)
}

func applyGlossary(text string, glossary []GlossaryEntry) string {
	for _, entry := range glossary {
		if entry.Term == "" || entry.Replacement == "" {
			continue
		}
		if entry.CaseSensitive {
			text = strings.ReplaceAll(text, entry.Term, entry.Replacement)
			continue
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(entry.Term))
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, entry.Replacement)
	}
	return text
}
