package wa

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	t.Run("short strings untouched", func(t *testing.T) {
		assert.Equal(t, "hello", truncate("hello", 10))
		assert.Equal(t, "hello", truncate("hello", 5))
	})

	t.Run("long strings get ellipsis within limit", func(t *testing.T) {
		got := truncate(strings.Repeat("a", 30), 20)
		assert.Equal(t, 20, utf8.RuneCountInString(got))
		assert.True(t, strings.HasSuffix(got, "…"))
	})

	t.Run("multibyte runes are not split", func(t *testing.T) {
		got := truncate(strings.Repeat("ё", 30), 20)
		assert.Equal(t, 20, utf8.RuneCountInString(got))
		assert.True(t, utf8.ValidString(got))
	})
}

func TestNewText(t *testing.T) {
	msg := NewText("hi there")
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, "hi there", msg.Text.Body)

	long := NewText(strings.Repeat("x", MaxBodyLen+100))
	assert.Equal(t, MaxBodyLen, utf8.RuneCountInString(long.Text.Body))
}
