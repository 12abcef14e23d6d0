package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"commas and spaces", "a cat, masterpiece,  best quality", []string{"a", "cat", "masterpiece", "best", "quality"}},
		{"newlines", "first\nsecond third", []string{"first", "second", "third"}},
		{"empty", "", nil},
		{"only separators", " ,, , ", nil},
		{"single token", "portrait", []string{"portrait"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SplitTokens(tt.input))
		})
	}
}
