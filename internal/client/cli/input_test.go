package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPrompter(input string) (*prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return &prompter{in: bufio.NewReader(strings.NewReader(input)), out: &out}, &out
}

func TestPrompterLine(t *testing.T) {
	p, out := newTestPrompter("hello world\n")
	got, err := p.Line("Name?")
	require.NoError(t, err)
	require.Equal(t, "hello world", got)
	require.Equal(t, "Name?\n> ", out.String())
}

func TestPrompterLine_LastLineWithoutNewline(t *testing.T) {
	p, _ := newTestPrompter("lastline")
	got, err := p.Line("Name?")
	require.NoError(t, err)
	require.Equal(t, "lastline", got)
}

func TestPrompterConfirm(t *testing.T) {
	tests := []struct {
		name, input string
		want        bool
	}{
		{"exact word", "wipe\n", true},
		{"padded word", "  wipe  \n", true},
		{"other answer", "no\n", false},
		{"no input", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := newTestPrompter(tt.input)
			got, err := p.Confirm("Delete all data?", "wipe")
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Contains(t, out.String(), `type "wipe" to continue`)
		})
	}
}

func TestPrompterMultiline(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"double enter", "a\nb\n\n\n", "a\nb"},
		{"CRLF", "a\r\nb\r\n\r\n", "a\nb"},
		{"EOF without blank line", "a\nb", "a\nb"},
		{"immediate blank", "\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPrompter(tt.input)
			got, err := p.Multiline("Body")
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestGetPassphrase(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	readPassword = func(int) ([]byte, error) { return []byte("s3cret"), nil }
	var out bytes.Buffer
	pw, err := GetPassphrase(&out)
	require.NoError(t, err)
	require.Equal(t, []byte("s3cret"), pw)

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetPassphrase(&out)
	require.Error(t, err)

	readPassword = func(int) ([]byte, error) { return []byte{}, nil }
	_, err = GetPassphrase(&out)
	require.Error(t, err)
}
