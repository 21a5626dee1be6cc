package aggregates

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var errStale = errors.New("stale version")

func TestError_FormatAndUnwrap(t *testing.T) {
	err := Conflict("reassessment.apply", errStale, "program %s changed", "p1")
	require.Equal(t, "[conflict] reassessment.apply: program p1 changed", err.Error())
	require.ErrorIs(t, err, errStale)
	require.True(t, IsCode(err, CodeConflict))

	require.Equal(t, "[not_found]", NewError(CodeNotFound, "", "", nil).Error())
	require.Equal(t, "[internal] op", NewError(CodeInternal, "op", "", nil).Error())
}

func TestCodeOf_ThroughWrapping(t *testing.T) {
	inner := Precondition("approval.approve", errStale, "override is %s", "rejected")
	outer := fmt.Errorf("approve: %w", inner)
	require.Equal(t, CodePreconditionFailed, CodeOf(outer))
	require.False(t, Retryable(outer))
	require.True(t, Retryable(Wrap(CodeRetryable, "op", errors.New("database is locked"))))
	require.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	require.False(t, IsCode(nil, CodeInternal))
	require.Nil(t, Wrap(CodeInternal, "op", nil))
}
