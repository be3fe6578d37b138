package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/ecare-e2e/internal/client"
	"github.com/jwalitptl/ecare-e2e/internal/model"
)

func clientConfig() client.Config {
	return client.Config{BaseURL: baseURL, Tenant: tenant, Timeout: 30 * time.Second, RateLimit: 5, RateBurst: 2}
}

// loggedIn returns a client holding a fresh access token.
func loggedIn(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.New(clientConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := c.Login(ctx, username, password)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode, resp.Message)

	var data model.LoginData
	require.NoError(t, resp.Decode(&data))
	require.NotEmpty(t, data.AccessToken)
	c.SetToken(data.AccessToken)
	return c
}
