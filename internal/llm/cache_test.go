package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns canned responses and counts calls
type scriptedClient struct {
	calls    int
	response string
	err      error
}

func (s *scriptedClient) Complete(_ context.Context, _ string, _ float64) (string, error) {
	s.calls++
	return s.response, s.err
}

func (s *scriptedClient) Endpoint() string { return "scripted" }
func (s *scriptedClient) Close() error     { return nil }

func TestCachedClient_HitSkipsInner(t *testing.T) {
	inner := &scriptedClient{response: "cached answer"}
	client, err := NewCachedClient(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	text, err := client.Complete(ctx, "prompt", 0.3)
	require.NoError(t, err)
	assert.Equal(t, "cached answer", text)

	text, err = client.Complete(ctx, "prompt", 0.3)
	require.NoError(t, err)
	assert.Equal(t, "cached answer", text)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, client.Len())
}

func TestCachedClient_KeyIncludesTemperature(t *testing.T) {
	inner := &scriptedClient{response: "x"}
	client, err := NewCachedClient(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.Complete(ctx, "prompt", 0.3)
	require.NoError(t, err)
	_, err = client.Complete(ctx, "prompt", 0.7)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedClient_ErrorsAreNotCached(t *testing.T) {
	inner := &scriptedClient{err: errors.New("boom")}
	client, err := NewCachedClient(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = client.Complete(ctx, "prompt", 0.3)
	require.Error(t, err)
	_, err = client.Complete(ctx, "prompt", 0.3)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, client.Len())
}
