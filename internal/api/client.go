// Package api is the typed resource client for the deal analysis backend. Reads go
// through the shared tag cache; writes invalidate their declared tags on success.
// Every operation returns a Result instead of panicking or throwing.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"deal-analyzer-client/internal/cache"
	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/http"
	"deal-analyzer-client/internal/common/logger"
)

// Transport performs backend calls. *http.Client satisfies it.
type Transport interface {
	Do(ctx context.Context, req http.Request) ([]byte, error)
	Download(ctx context.Context, location string, w io.Writer) error
}

// Result is the outcome of one operation: Data on success, Err otherwise.
type Result[T any] struct {
	Data T
	Err  *errors.StandardError
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Unwrap converts the result to the usual (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	if r.Err != nil {
		return r.Data, r.Err
	}
	return r.Data, nil
}

func success[T any](v T) Result[T] {
	return Result[T]{Data: v}
}

func failure[T any](err error) Result[T] {
	return Result[T]{Err: errors.AsStandardError(err)}
}

type Client struct {
	transport Transport
	cache     *cache.Store
	log       logger.Logger
}

func NewClient(transport Transport, store *cache.Store, log logger.Logger) *Client {
	return &Client{
		transport: transport,
		cache:     store,
		log:       log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Cache exposes the shared store, mainly for Settle and Reset.
func (c *Client) Cache() *cache.Store {
	return c.cache
}

// query builds a cacheable GET.
func (c *Client) query(op, key, path string, provides func([]byte) []cache.Tag) cache.Query {
	return cache.Query{
		Key:      key,
		Endpoint: op,
		Fetch: func(ctx context.Context) ([]byte, error) {
			return c.transport.Do(ctx, http.Request{Operation: op, Method: "GET", Path: path})
		},
		Provides: provides,
	}
}

func runQuery[T any](ctx context.Context, c *Client, q cache.Query) Result[T] {
	data, err := c.cache.Query(ctx, q)
	if err != nil {
		return failure[T](err)
	}
	v, err := decode[T](q.Endpoint, data)
	if err != nil {
		return failure[T](err)
	}
	return success(v)
}

// runMutation sends req and, on a 2xx answer, invalidates tags. Invalidation
// happens even if the body cannot be decoded since the backend applied the change.
func runMutation[T any](ctx context.Context, c *Client, req http.Request, tags ...cache.Tag) Result[T] {
	data, err := c.transport.Do(ctx, req)
	if err != nil {
		return failure[T](err)
	}
	if len(tags) > 0 {
		refetching := c.cache.Invalidate(tags...)
		c.log.Debug("Invalidated tags", map[string]interface{}{
			"operation":  req.Operation,
			"tags":       tagStrings(tags),
			"refetching": refetching,
		})
	}
	v, err := decode[T](req.Operation, data)
	if err != nil {
		return failure[T](err)
	}
	return success(v)
}

// watch keeps q active and reports every re-fetch to fn.
func watch[T any](c *Client, q cache.Query, fn func(Result[T])) *cache.Subscription {
	return c.cache.Subscribe(q, func(data []byte, err error) {
		if err != nil {
			fn(failure[T](err))
			return
		}
		v, err := decode[T](q.Endpoint, data)
		if err != nil {
			fn(failure[T](err))
			return
		}
		fn(success(v))
	})
}

func decode[T any](op string, data []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(data)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.NewDecodeError(op, err)
	}
	return v, nil
}

// providesList tags a list response with the coarse list tag plus one scoped tag
// per item id.
func providesList(listTag cache.Tag, itemType string) func([]byte) []cache.Tag {
	return func(data []byte) []cache.Tag {
		tags := []cache.Tag{listTag}
		var items []struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return tags
		}
		for _, it := range items {
			tags = append(tags, cache.ID(itemType, it.ID))
		}
		return tags
	}
}

func provides(tags ...cache.Tag) func([]byte) []cache.Tag {
	return func([]byte) []cache.Tag { return tags }
}

func requireID(op string, id int64) *errors.StandardError {
	if id <= 0 {
		return errors.NewPreconditionError(fmt.Sprintf("%s requires an id", op))
	}
	return nil
}

func tagStrings(tags []cache.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// Query keys. Two calls with the same key share a cache entry.
const (
	KeyCurrentUser      = "currentUser"
	KeyListDeals        = "listDeals"
	KeyListFilters      = "listFilters"
	KeyDashboardMetrics = "dashboardMetrics"
	KeyRecentDeals      = "recentDeals"
)

func KeyGetDeal(id int64) string { return fmt.Sprintf("getDeal(%d)", id) }
func KeyDealDocuments(id int64) string { return fmt.Sprintf("listDealDocuments(%d)", id) }
func KeyGetDocument(id int64) string { return fmt.Sprintf("getDocument(%d)", id) }
func KeyGetAnalysis(id int64) string { return fmt.Sprintf("getAnalysis(%d)", id) }
func KeyGetRecommendations(id int64) string { return fmt.Sprintf("getRecommendations(%d)", id) }
func KeyDealExports(id int64) string { return fmt.Sprintf("listDealExports(%d)", id) }
func KeyGetFilter(id int64) string { return fmt.Sprintf("getFilter(%d)", id) }
