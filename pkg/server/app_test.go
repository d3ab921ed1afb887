package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xhttp "AutoValue/pkg/http"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type feedStub struct{ r *recorder }

func (f feedStub) Close() { f.r.add("feed") }

type sweeperStub struct{ started chan struct{} }

func (s sweeperStub) Sweep(ctx context.Context, _ time.Duration) {
	close(s.started)
	<-ctx.Done()
}

func TestRunContextShutsDownInOrder(t *testing.T) {
	rec := &recorder{}
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0),
		xhttp.WithTimeouts(time.Second, time.Second, time.Second))
	sw := sweeperStub{started: make(chan struct{})}

	app := New(nil, srv,
		WithFeed(feedStub{r: rec}),
		WithSweeper(sw),
		WithCloser("producer", closerFunc(func() error { rec.add("producer"); return nil })),
		WithCloser("clickhouse", closerFunc(func() error { rec.add("clickhouse"); return errors.New("already closed") })),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	select {
	case <-sw.started:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper not started")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, []string{"feed", "producer", "clickhouse"}, rec.list())
}

func TestWithConsumerIgnoresNil(t *testing.T) {
	app := New(nil, nil, WithConsumer(nil, nil))
	assert.Nil(t, app.consumer)
}
