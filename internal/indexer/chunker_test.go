package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishaan812/treeqa/internal/llm"
	"github.com/ishaan812/treeqa/internal/prompts"
)

func bracket(c string) string { return "P[" + c + "]" }

func TestChunker_FitsMakesOneCall(t *testing.T) {
	client := &recordingClient{}
	c := NewChunker(client, lenOracle, budgetFor(100))

	got, err := c.Summarize(context.Background(), "abcd", bracket)
	require.NoError(t, err)
	assert.Equal(t, "S(P[abcd])", got)
	assert.Equal(t, []string{"P[abcd]"}, client.calls())
}

func TestChunker_SplitsInHalvesThenMerges(t *testing.T) {
	client := &recordingClient{}
	// "P[abcd]" is 7 tokens and fits; "P[abcdefgh]" does not.
	c := NewChunker(client, lenOracle, budgetFor(8))

	got, err := c.Summarize(context.Background(), "abcdefgh", bracket)
	require.NoError(t, err)

	merge := prompts.BuildMergeSummariesPrompt("S(P[abcd])", "S(P[efgh])")
	assert.Equal(t, []string{"P[abcd]", "P[efgh]", merge}, client.calls())
	assert.Equal(t, "S("+merge+")", got)
}

func TestChunker_RecursesDepthFirst(t *testing.T) {
	client := &recordingClient{}
	// Only two-character pieces fit.
	c := NewChunker(client, lenOracle, budgetFor(6))

	_, err := c.Summarize(context.Background(), "abcdefgh", bracket)
	require.NoError(t, err)

	calls := client.calls()
	require.Len(t, calls, 7)
	assert.Equal(t, "P[ab]", calls[0])
	assert.Equal(t, "P[cd]", calls[1])
	assert.True(t, strings.HasPrefix(calls[2], "Combine"))
	assert.Equal(t, "P[ef]", calls[3])
	assert.Equal(t, "P[gh]", calls[4])
	assert.True(t, strings.HasPrefix(calls[5], "Combine"))
	assert.True(t, strings.HasPrefix(calls[6], "Combine"))
}

func TestChunker_OddLengthFirstHalfShorter(t *testing.T) {
	client := &recordingClient{}
	c := NewChunker(client, lenOracle, budgetFor(7))

	_, err := c.Summarize(context.Background(), "abcde", bracket)
	require.NoError(t, err)
	calls := client.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "P[ab]", calls[0])
	assert.Equal(t, "P[cde]", calls[1])
}

func TestChunker_SplitsByRunes(t *testing.T) {
	client := &recordingClient{}
	runes := llm.OracleFunc(func(p string) int { return len([]rune(p)) })
	c := NewChunker(client, runes, budgetFor(6))

	_, err := c.Summarize(context.Background(), "ééüü", bracket)
	require.NoError(t, err)
	calls := client.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "P[éé]", calls[0])
	assert.Equal(t, "P[üü]", calls[1])
}

func TestChunker_UnsplittableOverflow(t *testing.T) {
	client := &recordingClient{}
	huge := func(c string) string { return strings.Repeat("x", 100) + c }
	c := NewChunker(client, lenOracle, budgetFor(10))

	_, err := c.Summarize(context.Background(), "ab", huge)
	assert.ErrorIs(t, err, llm.ErrContextOverflow)
	assert.Empty(t, client.calls())

	_, err = c.Summarize(context.Background(), "", huge)
	assert.ErrorIs(t, err, llm.ErrContextOverflow)
}

func TestChunker_GenerationErrorAborts(t *testing.T) {
	boom := errors.New("backend down")
	client := &recordingClient{respond: func(p string) (string, error) {
		if p == "P[efgh]" {
			return "", boom
		}
		return "ok", nil
	}}
	c := NewChunker(client, lenOracle, budgetFor(8))

	_, err := c.Summarize(context.Background(), "abcdefgh", bracket)
	assert.ErrorIs(t, err, llm.ErrGeneration)
	assert.ErrorIs(t, err, boom)
	// No merge after a failed half.
	assert.Equal(t, []string{"P[abcd]", "P[efgh]"}, client.calls())
}

func TestChunker_EmptyResponseIsError(t *testing.T) {
	client := &recordingClient{respond: func(string) (string, error) { return " \n", nil }}
	c := NewChunker(client, lenOracle, budgetFor(100))

	_, err := c.Summarize(context.Background(), "abc", bracket)
	assert.ErrorIs(t, err, llm.ErrGeneration)
}

func TestChunker_RespectsCancelledContextUnderConcurrencyLimit(t *testing.T) {
	client := &recordingClient{}
	c := NewChunker(client, lenOracle, budgetFor(100), WithConcurrency(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Summarize(ctx, "abc", bracket)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.calls())
}
