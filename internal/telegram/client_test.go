package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByBytesKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("é", 5) // 2 bytes each
	parts := splitByBytes(text, 3)
	require.Len(t, parts, 5)
	for _, p := range parts {
		assert.Equal(t, "é", p)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitByBytesShortText(t *testing.T) {
	assert.Equal(t, []string{"hello"}, splitByBytes("hello", 4096))
	assert.Equal(t, []string{"hello"}, splitByBytes("hello", 0))
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "ab", truncateByBytes("abc", 2))
	assert.Equal(t, "é", truncateByBytes("éé", 3))
	assert.Equal(t, "abc", truncateByBytes("abc", 10))
}
