package gitrepo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{"empty", nil, false},
		{"plain text", []byte("hello world\n"), false},
		{"utf8 text", []byte("héllo wörld"), false},
		{"null byte at start", []byte("\x00abc"), true},
		{"null byte in middle", []byte("abc\x00def"), true},
		{"null byte past sniff window", append(bytes.Repeat([]byte{'a'}, binarySniffLen), 0), false},
		{"null byte at sniff boundary", append(bytes.Repeat([]byte{'a'}, binarySniffLen-1), 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsBinary(tt.data))
		})
	}
}
