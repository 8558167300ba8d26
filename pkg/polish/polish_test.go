package polish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulePolisherRemovesFillers(t *testing.T) {
	p := NewRulePolisher()

	out, err := p.Polish(context.Background(), "um I think uh this works")
	require.NoError(t, err)
	assert.Equal(t, "I think this works.", out)

	out, err = p.Polish(context.Background(), "嗯这个方案可以")
	require.NoError(t, err)
	assert.Equal(t, "这个方案可以。", out)
}

func TestRulePolisherSelfCorrection(t *testing.T) {
	p := NewRulePolisher()

	out, err := p.Polish(context.Background(), "不对，周五见面")
	require.NoError(t, err)
	assert.Equal(t, "周五见面。", out)

	out, err = p.Polish(context.Background(), "I'll call you tomorrow, no wait, next week")
	require.NoError(t, err)
	assert.Equal(t, "I'll call you tomorrow, next week.", out)
}

func TestRulePolisherListFormatting(t *testing.T) {
	p := NewRulePolisher()

	out, err := p.Polish(context.Background(), "第一步打开设置，第二步点击网络")
	require.NoError(t, err)
	assert.Equal(t, "第一步打开设置，\n第二步点击网络。", out)
}

func TestRulePolisherTrailingPunctuation(t *testing.T) {
	p := NewRulePolisher()

	out, err := p.Polish(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world.", out)

	out, err = p.Polish(context.Background(), "already done.")
	require.NoError(t, err)
	assert.Equal(t, "already done.", out)
}

func TestRulePolisherEmptyInput(t *testing.T) {
	p := NewRulePolisher()

	out, err := p.Polish(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "   ", out)
}

type upperPolisher struct{}

func (upperPolisher) Name() string { return "upper" }
func (upperPolisher) Polish(_ context.Context, text string) (string, error) {
	return text + "!", nil
}

type brokenPolisher struct{}

func (brokenPolisher) Name() string { return "broken" }
func (brokenPolisher) Polish(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

func TestChainSkipsFailingStage(t *testing.T) {
	chain := NewChain(brokenPolisher{}, upperPolisher{})

	out, err := chain.Polish(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)
}
