package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "命宫...", Truncate("命宫评分八十五", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
