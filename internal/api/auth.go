package api

import (
	"context"

	"deal-analyzer-client/internal/cache"
	"deal-analyzer-client/internal/common/http"
	"deal-analyzer-client/internal/models"
)

// Login exchanges credentials for a token pair and invalidates User.
func (c *Client) Login(ctx context.Context, creds models.Credentials) Result[models.Tokens] {
	return runMutation[models.Tokens](ctx, c, http.Request{
		Operation: "login",
		Method:    "POST",
		Path:      "token/",
		Body:      creds,
	}, cache.T(cache.TypeUser))
}

// RefreshToken trades a refresh token for a new access token. Nothing calls it
// automatically.
func (c *Client) RefreshToken(ctx context.Context, refresh string) Result[models.Tokens] {
	return runMutation[models.Tokens](ctx, c, http.Request{
		Operation: "refreshToken",
		Method:    "POST",
		Path:      "token/refresh/",
		Body:      map[string]string{"refresh": refresh},
	})
}

func (c *Client) currentUserQuery() cache.Query {
	return c.query("currentUser", KeyCurrentUser, "auth/me/", provides(cache.T(cache.TypeUser)))
}

func (c *Client) CurrentUser(ctx context.Context) Result[models.User] {
	return runQuery[models.User](ctx, c, c.currentUserQuery())
}

func (c *Client) WatchCurrentUser(fn func(Result[models.User])) *cache.Subscription {
	return watch(c, c.currentUserQuery(), fn)
}

func (c *Client) Register(ctx context.Context, reg models.Registration) Result[models.Ack] {
	return runMutation[models.Ack](ctx, c, http.Request{
		Operation: "register",
		Method:    "POST",
		Path:      "auth/register/",
		Body:      reg,
	})
}
