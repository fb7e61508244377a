package app

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinePrompt(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompt(strings.NewReader("fist\n  open hand \nDONE\nignored\n"), &out)
	ctx := context.Background()

	pose, ok, err := p.NextPose(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fist", pose)

	pose, ok, err = p.NextPose(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "open hand", pose)

	_, ok, err = p.NextPose(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "done ends the session in any case")

	assert.Equal(t, 3, strings.Count(out.String(), "Enter pose name (or 'done' to finish): "))
}

func TestLinePromptEndings(t *testing.T) {
	for name, input := range map[string]string{
		"empty line":   "\nfist\n",
		"end of input": "",
	} {
		t.Run(name, func(t *testing.T) {
			p := NewLinePrompt(strings.NewReader(input), io.Discard)
			_, ok, err := p.NextPose(context.Background())
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLinePromptInterrupted(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	p := NewLinePrompt(r, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := p.NextPose(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
