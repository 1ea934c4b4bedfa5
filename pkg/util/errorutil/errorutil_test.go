package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughWrapped(t *testing.T) {
	base := NewDuplicateActiveBan(map[string]any{"player_id": "p1"})
	wrapped := fmt.Errorf("issue ban: %w", base)

	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, CodeDuplicateActiveBan, de.Code)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
	assert.Equal(t, "p1", de.Details["player_id"])
}

func TestToDomainError_UnknownBecomesInternal(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	require.NotNil(t, de)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeMissingGuardData, CodeOf(NewMissingGuardData("x", nil)))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.True(t, Is(NewInvalidEdge("x", nil), CodeInvalidEdge))
	assert.False(t, Is(nil, CodeInvalidEdge))
}

func TestConcurrentModificationUnwraps(t *testing.T) {
	cause := errors.New("version mismatch")
	err := NewConcurrentModification("incident", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "incident was modified concurrently")
}
