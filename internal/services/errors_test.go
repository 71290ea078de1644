package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/SigNoz/retail-order-engine/internal/gateway"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindCapacityExceeded, KindOf(CapacityExceeded("full")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", NotFound("gone", nil))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestFromStore(t *testing.T) {
	err := fromStore(fmt.Errorf("order 3: %w", store.ErrNotFound), "order")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Contains(t, err.Error(), "order not found")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, KindStateConflict, KindOf(fromStore(store.ErrConflict, "order")))

	timeout := fromStore(context.DeadlineExceeded, "order")
	var e *Error
	assert.True(t, errors.As(timeout, &e))
	assert.Equal(t, KindUpstream, e.Kind)
	assert.True(t, e.Retryable)

	typed := Forbidden("no")
	assert.Same(t, typed, fromStore(typed, "order"))

	plain := errors.New("disk on fire")
	assert.Equal(t, plain, fromStore(plain, "order"))
	assert.Nil(t, fromStore(nil, "order"))
}

func TestUpstreamRetryable(t *testing.T) {
	assert.True(t, Upstream("x", &gateway.APIError{StatusCode: 503}).Retryable)
	assert.False(t, Upstream("x", &gateway.APIError{StatusCode: 400}).Retryable)
	assert.False(t, Upstream("x", errors.New("boom")).Retryable)
}
