package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "bloodlink/pkg/domain-errors"
)

func TestRunConcurrentBucketsByCode(t *testing.T) {
	result := RunConcurrent(5, func(idx int) error {
		switch idx {
		case 0:
			return nil
		case 1:
			return dErrors.New(dErrors.CodeConflict, "taken")
		case 2:
			return dErrors.New(dErrors.CodeInvariantViolation, "wrong state")
		case 3:
			return dErrors.New(dErrors.CodeNotFound, "gone")
		default:
			return errors.New("boom")
		}
	})

	assert.Equal(t, int32(1), result.Successes)
	assert.Equal(t, int32(2), result.Conflicts)
	assert.Equal(t, int32(1), result.NotFounds)
	assert.Equal(t, int32(1), result.Errors)
	assert.Equal(t, int32(5), result.Total())
}
