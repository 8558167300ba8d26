package polish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanch007/voiceflow-sub001/pkg/llm"
)

type fakeLLM struct {
	reply    string
	err      error
	messages [][]llm.Message
}

func (f *fakeLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	f.messages = append(f.messages, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Ping(context.Context) error { return nil }
func (f *fakeLLM) Name() string               { return "fake" }

func TestLLMPolishUsesModelReply(t *testing.T) {
	client := &fakeLLM{reply: "  今天天气不错。  "}
	p := NewLLMPolisher(client, LLMConfig{Scene: "general"})

	out, err := p.Polish(context.Background(), "嗯今天天气不错")
	require.NoError(t, err)
	assert.Equal(t, "今天天气不错。", out)

	require.Len(t, client.messages, 1)
	msgs := client.messages[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "语音转文字")
	assert.Equal(t, "嗯今天天气不错", msgs[1].Content)
}

func TestLLMPolishSceneSelectsPrompt(t *testing.T) {
	client := &fakeLLM{reply: "ok"}
	p := NewLLMPolisher(client, LLMConfig{Scene: "coding"})

	_, err := p.Polish(context.Background(), "rename the handler")
	require.NoError(t, err)
	assert.Contains(t, client.messages[0][0].Content, "编程场景")
}

func TestLLMPolishCustomPromptWins(t *testing.T) {
	client := &fakeLLM{reply: "ok"}
	p := NewLLMPolisher(client, LLMConfig{Scene: "coding", CustomPrompt: "only fix typos"})

	_, err := p.Polish(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, "only fix typos", client.messages[0][0].Content)
}

func TestLLMPolishFallsBackToRules(t *testing.T) {
	client := &fakeLLM{err: errors.New("backend down")}
	p := NewLLMPolisher(client, LLMConfig{MaxAttempts: 1})

	out, err := p.Polish(context.Background(), "um I think uh this works")
	require.NoError(t, err)
	assert.Equal(t, "I think this works.", out)
}

func TestLLMPolishBreakerOpenFallsBackWithoutRetry(t *testing.T) {
	client := &fakeLLM{err: llm.ErrBreakerOpen}
	p := NewLLMPolisher(client, LLMConfig{MaxAttempts: 3})

	out, err := p.Polish(context.Background(), "嗯这个方案可以")
	require.NoError(t, err)
	assert.Equal(t, "这个方案可以。", out)
	assert.Len(t, client.messages, 1)
}

func TestLLMPolishEmptyReplyFallsBack(t *testing.T) {
	client := &fakeLLM{reply: "   "}
	p := NewLLMPolisher(client, LLMConfig{})

	out, err := p.Polish(context.Background(), "嗯这个方案可以")
	require.NoError(t, err)
	assert.Equal(t, "这个方案可以。", out)
}

func TestLLMPolishSkipsBlankInput(t *testing.T) {
	client := &fakeLLM{reply: "should not be called"}
	p := NewLLMPolisher(client, LLMConfig{})

	out, err := p.Polish(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "   ", out)
	assert.Empty(t, client.messages)
}

func TestGlossaryAppliedBeforeModel(t *testing.T) {
	client := &fakeLLM{reply: "ok"}
	p := NewLLMPolisher(client, LLMConfig{
		Glossary: []GlossaryEntry{
			{Term: "kube control", Replacement: "kubectl"},
			{Term: "GO lang", Replacement: "Go", CaseSensitive: true},
		},
	})

	_, err := p.Polish(context.Background(), "run Kube Control apply with go lang")
	require.NoError(t, err)
	assert.Equal(t, "run kubectl apply with go lang", client.messages[0][1].Content)
}
