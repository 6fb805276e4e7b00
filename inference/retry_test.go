package inference_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skosovsky/agentkit/inference"
	"github.com/skosovsky/agentkit/testutil"
)

func flaky(failures int, calls *atomic.Int32) inference.ProviderFunc {
	return func(context.Context, inference.Request) (inference.Response, error) {
		n := calls.Add(1)
		if int(n) <= failures {
			return inference.Response{}, errors.New("transient")
		}
		return inference.Response{Text: "ok"}, nil
	}
}

func TestRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	p := inference.WithRetry(flaky(2, &calls), 3, time.Millisecond)

	resp, err := p.Complete(context.Background(), inference.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	p := inference.WithRetry(flaky(10, &calls), 2, time.Millisecond)

	_, err := p.Complete(context.Background(), inference.Request{})
	require.Error(t, err)
	assert.Equal(t, "transient", err.Error())
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryDoesNotRetryCancellation(t *testing.T) {
	var calls atomic.Int32
	p := inference.WithRetry(inference.ProviderFunc(func(context.Context, inference.Request) (inference.Response, error) {
		calls.Add(1)
		return inference.Response{}, context.Canceled
	}), 5, time.Millisecond)

	_, err := p.Complete(context.Background(), inference.Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryForwardsContextLimit(t *testing.T) {
	scripted := testutil.NewScriptedProvider()
	scripted.Limit = 30
	assert.Equal(t, 30, inference.WithRetry(scripted, 0, 0).MaxContextLength())

	var calls atomic.Int32
	assert.Equal(t, 0, inference.WithRetry(flaky(0, &calls), 0, 0).MaxContextLength())
}
