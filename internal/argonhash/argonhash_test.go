package argonhash

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	encoded, err := Hash("hunter2")
	require.NoError(t, err)
	assert.NoError(t, Verify("hunter2", encoded))
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	encoded, err := Hash("hunter2")
	require.NoError(t, err)
	assert.ErrorIs(t, Verify("wrong", encoded), ErrMismatch)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	err := Verify("hunter2", "not-a-hash")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMismatch))
}

func TestHashIsSaltedPerCall(t *testing.T) {
	a, err := Hash("hunter2")
	require.NoError(t, err)
	b, err := Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
