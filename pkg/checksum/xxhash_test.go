package checksum

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumIsStable(t *testing.T) {
	a, err := Sum(strings.NewReader("delivery_date,title\n2024-05-01,hello\n"))
	require.NoError(t, err)
	b, err := Sum(strings.NewReader("delivery_date,title\n2024-05-01,hello\n"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestSumDiffersOnContent(t *testing.T) {
	a, err := Sum(strings.NewReader("content a"))
	require.NoError(t, err)
	b, err := Sum(strings.NewReader("content b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSumBytesMatchesSum(t *testing.T) {
	content := []byte("same bytes either way")
	fromReader, err := Sum(strings.NewReader(string(content)))
	require.NoError(t, err)
	assert.Equal(t, fromReader, SumBytes(content))
}
