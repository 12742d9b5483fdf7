package errx

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("something failed")

func TestWrapMatchesBoth(t *testing.T) {
	err := Wrap(errSentinel, os.ErrNotExist)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errSentinel))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWithPreservesSentinel(t *testing.T) {
	err := With(errSentinel, ": path %q", "/tmp/x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errSentinel))
	assert.Equal(t, `something failed: path "/tmp/x"`, err.Error())
}
