// Package remotetest provides an in-memory remote.Connector for tests.
package remotetest

import (
	"context"
	"sync"

	"github.com/rongwang/billing-admin/internal/remote"
)

// FakeConnector records every open and close and serves a canned result.
type FakeConnector struct {
	mu sync.Mutex

	OpenErr      error
	QueryErr     error
	PanicOnQuery bool
	Result       *remote.TabularResult

	Opens       int
	Closes      int
	Descriptors []remote.Descriptor
	Queries     []string
	HadDeadline bool
}

func (f *FakeConnector) Open(ctx context.Context, d remote.Descriptor) (remote.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Opens++
	f.Descriptors = append(f.Descriptors, d)
	_, f.HadDeadline = ctx.Deadline()

	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	return &fakeConn{f: f}, nil
}

// Counts returns the number of opens and closes seen so far.
func (f *FakeConnector) Counts() (opens, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Opens, f.Closes
}

type fakeConn struct {
	f *FakeConnector
}

func (c *fakeConn) Query(_ context.Context, sqlText string) (*remote.TabularResult, error) {
	c.f.mu.Lock()
	c.f.Queries = append(c.f.Queries, sqlText)
	panicking, err, result := c.f.PanicOnQuery, c.f.QueryErr, c.f.Result
	c.f.mu.Unlock()

	if panicking {
		panic("driver crashed")
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &remote.TabularResult{}, nil
	}
	return result, nil
}

func (c *fakeConn) Close() error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.Closes++
	return nil
}
