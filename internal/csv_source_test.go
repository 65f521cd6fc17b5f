package internal

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSource_NormalizesHeader(t *testing.T) {
	source, err := NewCSVSource(strings.NewReader("Full Name, Email\nJane,jane@example.com\n"))
	require.NoError(t, err)

	row, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, "Jane", row["full_name"])
	assert.Equal(t, "jane@example.com", row["email"])

	_, err = source.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCSVSource_ShortRowsPadEmpty(t *testing.T) {
	source, err := NewCSVSource(strings.NewReader("Full Name,Email,Department\nJane,jane@example.com\n"))
	require.NoError(t, err)

	row, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, "", row["department"])
}

func TestCSVSource_MalformedRowDoesNotPoisonSource(t *testing.T) {
	data := "Name\nbad\"quote\nJane\n"
	source, err := NewCSVSource(strings.NewReader(data))
	require.NoError(t, err)

	_, err = source.Next()
	require.Error(t, err)

	// The next rows still come through.
	row, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, "Jane", row["name"])
}

func TestCSVSource_EmptyInputFailsAtHeader(t *testing.T) {
	_, err := NewCSVSource(strings.NewReader(""))
	require.Error(t, err)
}
