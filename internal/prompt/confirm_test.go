package prompt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "lower y", input: "y\n", want: true},
		{name: "upper Y", input: "Y\n", want: true},
		{name: "padded y", input: "  y  \n", want: true},
		{name: "y without newline", input: "y", want: true},
		{name: "n", input: "n\n", want: false},
		{name: "yes is not y", input: "yes\n", want: false},
		{name: "empty line", input: "\n", want: false},
		{name: "eof", input: "", want: false},
		{name: "only first line counts", input: "n\ny\n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := New(strings.NewReader(tt.input), &out, "firestore-import")

			got, err := c.Confirm("Proceed with import? [y/N] ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "firestore-import: Proceed with import? [y/N]")
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("tty gone") }

func TestConfirmReadError(t *testing.T) {
	c := New(failingReader{}, &bytes.Buffer{}, "")
	_, err := c.Confirm("Proceed?")
	assert.Error(t, err)
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(ErrAborted))
	assert.False(t, IsAborted(errors.New("other")))
}
