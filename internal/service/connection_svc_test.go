package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"accelerator_sync_v1/pkg/tiktok"
	"accelerator_sync_v1/pkg/utils"
)

func newConnectionService(env *testEnv) *ConnectionService {
	return NewConnectionService(env.connRepo, env.platform, utils.NewTTLCache(time.Minute), ConnectionConfig{
		AuthorizeURL: "https://services.tiktokshop.com/open/authorize",
		ServiceID:    "svc-123",
	}, zap.NewNop())
}

func stateOf(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "svc-123", u.Query().Get("service_id"))
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestConnectionService_AuthorizeAndCallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newConnectionService(env)
	env.platform.exchange = func(code string) (*tiktok.TokenPair, error) {
		assert.Equal(t, "auth-code", code)
		p := freshPair("at-1", "rt-1")
		p.OpenID = "seller-open-id"
		p.SellerName = "Seller"
		return p, nil
	}

	link, err := svc.BuildAuthorizeURL(ctx, 7)
	require.NoError(t, err)
	state := stateOf(t, link)

	conn, err := svc.HandleCallback(ctx, "auth-code", state)
	require.NoError(t, err)
	assert.Equal(t, int64(7), conn.UserID)
	assert.Equal(t, "seller-open-id", conn.OpenID)
	assert.True(t, conn.NeedsShopDiscovery())

	// state 只能使用一次
	_, err = svc.HandleCallback(ctx, "auth-code", state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConnectionService_ReauthorizeReusesConnection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newConnectionService(env)
	tokenSeq := []string{"at-1", "at-2"}
	env.platform.exchange = func(code string) (*tiktok.TokenPair, error) {
		p := freshPair(tokenSeq[0], "rt-"+tokenSeq[0])
		tokenSeq = tokenSeq[1:]
		p.OpenID = "seller-open-id"
		return p, nil
	}

	link, err := svc.BuildAuthorizeURL(ctx, 7)
	require.NoError(t, err)
	first, err := svc.HandleCallback(ctx, "c1", stateOf(t, link))
	require.NoError(t, err)

	link, err = svc.BuildAuthorizeURL(ctx, 7)
	require.NoError(t, err)
	second, err := svc.HandleCallback(ctx, "c2", stateOf(t, link))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "at-2", second.AccessToken)

	list, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestConnectionService_UnknownState(t *testing.T) {
	env := newTestEnv(t)
	svc := newConnectionService(env)
	_, err := svc.HandleCallback(context.Background(), "code", "forged")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConnectionService_DisconnectChecksOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newConnectionService(env)
	conn := createConnection(t, env.db, 1, "cipher")

	assert.ErrorIs(t, svc.Disconnect(ctx, 2, conn.ID), ErrConnectionNotFound)
	_, err := svc.Get(ctx, 2, conn.ID)
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	require.NoError(t, svc.Disconnect(ctx, 1, conn.ID))
	_, err = svc.Get(ctx, 1, conn.ID)
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}
