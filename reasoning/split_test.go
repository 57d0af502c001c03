package reasoning

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		response string
		thought  string
	}{
		{
			name:     "reasoning before answer",
			input:    "<think>reasoning here</think>Hello world",
			response: "Hello world",
			thought:  "reasoning here",
		},
		{
			name:     "no markers",
			input:    "Plain answer, no markers.",
			response: "Plain answer, no markers.",
		},
		{
			name:     "multiline reasoning is trimmed",
			input:    "<think>\nstep one\nstep two\n</think>\n\nThe answer is 4.",
			response: "The answer is 4.",
			thought:  "step one\nstep two",
		},
		{
			name:     "block in the middle",
			input:    "Before <think>hidden</think> after",
			response: "Before  after",
			thought:  "hidden",
		},
		{
			name:     "empty block",
			input:    "<think></think>Answer",
			response: "Answer",
		},
		{
			name:     "only first block removed",
			input:    "<think>a</think>x<think>b</think>y",
			response: "x<think>b</think>y",
			thought:  "a",
		},
		{
			name:     "unclosed marker left alone",
			input:    "  <think>never closed ",
			response: "<think>never closed",
		},
		{
			name:     "close before open is not a block",
			input:    "</think>text<think>",
			response: "</think>text<think>",
		},
		{
			name:     "non-greedy stops at first close",
			input:    "<think>a</think>b</think>c",
			response: "b</think>c",
			thought:  "a",
		},
		{
			name:     "nested open marker is interior text",
			input:    "<think>x<think>y</think>z",
			response: "z",
			thought:  "x<think>y",
		},
		{
			name:     "trim set includes NUL and vertical tab",
			input:    "\x00\x0B answer \r\n",
			response: "answer",
		},
		{
			name:     "empty input",
			input:    "",
			response: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.input)
			assert.Equal(t, tt.response, got.Response)
			assert.Equal(t, tt.thought, got.ChainOfThought)
		})
	}
}

func TestSplit_Idempotent(t *testing.T) {
	inputs := []string{
		"<think>reasoning here</think>Hello world",
		"Plain answer, no markers.",
		"  lead <think> t </think> trail  ",
	}

	for _, in := range inputs {
		first := Split(in)
		second := Split(first.Response)
		assert.Equal(t, first.Response, second.Response, in)
		assert.Empty(t, second.ChainOfThought, in)
	}
}

func TestSplit_UnmatchedMarkersLinear(t *testing.T) {
	input := strings.Repeat(OpenMarker, 200000) + "tail"

	start := time.Now()
	got := Split(input)

	assert.Empty(t, got.ChainOfThought)
	assert.True(t, strings.HasSuffix(got.Response, "tail"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHasReasoning(t *testing.T) {
	assert.True(t, HasReasoning("<think>x</think>"))
	assert.False(t, HasReasoning("<think>x"))
	assert.False(t, HasReasoning("nothing"))
}
