package inference_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skosovsky/agentkit/conversation"
	"github.com/skosovsky/agentkit/inference"
	"github.com/skosovsky/agentkit/testutil"
)

func TestFactoryExactTier(t *testing.T) {
	light := testutil.NewScriptedProvider()
	heavy := testutil.NewScriptedProvider()
	f := inference.NewFactory(nil)
	f.Register(inference.TierLight, light)
	f.Register(inference.TierHeavy, heavy)

	conv := conversation.NewShort()
	c, err := f.CreateClient(context.Background(), inference.TierHeavy, conv)
	require.NoError(t, err)
	assert.Same(t, heavy, c.Provider())
	assert.Same(t, conv, c.Context())
	assert.Equal(t, []inference.Tier{inference.TierLight, inference.TierHeavy}, f.Tiers())
}

func TestFactoryNearestTierIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	light := testutil.NewScriptedProvider()
	heavy := testutil.NewScriptedProvider()
	f := inference.NewFactory(logger)
	f.Register(inference.TierLight, light)
	f.Register(inference.TierHeavy, heavy)

	c, err := f.CreateClient(context.Background(), inference.TierMiddle, nil)
	require.NoError(t, err)
	assert.Same(t, light, c.Provider())
	assert.NotNil(t, c.Context())
	assert.Contains(t, buf.String(), "inference tier substituted")
	assert.Contains(t, buf.String(), "requested=middle")
	assert.Contains(t, buf.String(), "resolved=light")
}

func TestFactoryResolve(t *testing.T) {
	f := inference.NewFactory(nil)
	_, err := f.Resolve(inference.TierLight)
	require.ErrorIs(t, err, inference.ErrNoProvider)
	_, err = f.CreateClient(context.Background(), inference.TierLight, nil)
	require.ErrorIs(t, err, inference.ErrNoProvider)

	f.Register(inference.TierHeavy, testutil.NewScriptedProvider())
	got, err := f.Resolve(inference.TierLight)
	require.NoError(t, err)
	assert.Equal(t, inference.TierHeavy, got)

	f.Register(inference.TierMiddle, testutil.NewScriptedProvider())
	got, err = f.Resolve(inference.TierLight)
	require.NoError(t, err)
	assert.Equal(t, inference.TierMiddle, got)
}

func TestFactoryClientsAreIndependent(t *testing.T) {
	f := inference.NewFactory(nil, inference.WithMaxIterations(2))
	f.Register(inference.TierMiddle, testutil.NewScriptedProvider())

	a, err := f.CreateClient(context.Background(), inference.TierMiddle, conversation.NewLong())
	require.NoError(t, err)
	b, err := f.CreateClient(context.Background(), inference.TierMiddle, conversation.NewLong())
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.NotSame(t, a.Context(), b.Context())
}

func TestParseTier(t *testing.T) {
	for _, tier := range []inference.Tier{inference.TierLight, inference.TierMiddle, inference.TierHeavy} {
		got, err := inference.ParseTier(tier.String())
		require.NoError(t, err)
		assert.Equal(t, tier, got)
	}
	_, err := inference.ParseTier("ultra")
	require.Error(t, err)
	assert.Equal(t, "tier(7)", inference.Tier(7).String())
}
