package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		l, err := New(level, FormatJSON)
		require.NoError(t, err, level)
		assert.NotNil(t, l)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("verbose", FormatJSON)
	assert.Error(t, err)
}

func TestFor_NamesComponent(t *testing.T) {
	l := For("store")
	require.NotNil(t, l)
	assert.Equal(t, "store", l.Desugar().Name())
}
