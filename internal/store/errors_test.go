package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityErrorsWrapGenericErrors(t *testing.T) {
	notFound := []error{
		ErrUserNotFound, ErrOrganizationNotFound, ErrMembershipNotFound,
		ErrInvitationNotFound, ErrProjectNotFound, ErrTaskNotFound, ErrJobNotFound,
	}
	for _, err := range notFound {
		assert.True(t, IsNotFoundError(err), "%v should be a not-found error", err)
		assert.True(t, IsNotFoundError(fmt.Errorf("lookup: %w", err)))
		assert.False(t, IsDuplicateError(err))
	}

	for _, err := range []error{ErrSlugExists, ErrMembershipExists} {
		assert.True(t, IsDuplicateError(err), "%v should be a duplicate error", err)
		assert.False(t, IsNotFoundError(err))
	}
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError("task", "bulk_create", "batch 2 failed", cause)

	assert.Equal(t, "bulk_create operation on task failed: batch 2 failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewStoreError("task", "bulk_create", "empty batch", nil)
	assert.Equal(t, "bulk_create operation on task failed: empty batch", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
