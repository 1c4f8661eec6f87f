package network

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromise_ResolvesOnce(t *testing.T) {
	p := newPromise()

	assert.True(t, p.resolve(Succeeded([]byte("first"))))
	assert.False(t, p.resolve(Failed(ErrUnexpected)))

	r, err := p.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), r.Data)
}

func TestObservable_ReplaysToLateSubscribers(t *testing.T) {
	p := newPromise()
	o := &Observable{p: p}

	var wg sync.WaitGroup
	results := make(chan Result, 3)

	wg.Add(1)
	o.Subscribe(func(r Result) {
		results <- r
		wg.Done()
	})

	p.resolve(Succeeded([]byte("data")))

	wg.Add(2)
	for i := 0; i < 2; i++ {
		o.Subscribe(func(r Result) {
			results <- r
			wg.Done()
		})
	}

	wg.Wait()
	close(results)
	count := 0
	for r := range results {
		assert.Equal(t, []byte("data"), r.Data)
		count++
	}
	assert.Equal(t, 3, count)
}

func TestObservable_Chan(t *testing.T) {
	p := newPromise()
	o := &Observable{p: p}
	ch := o.Chan()

	p.resolve(Failed(Failure("boom")))

	select {
	case r, ok := <-ch:
		require.True(t, ok)
		assert.Equal(t, "boom", r.Err.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after delivery")

	late := <-o.Chan()
	assert.Equal(t, "boom", late.Err.Error())
}

func TestObservable_WaitHonoursContext(t *testing.T) {
	o := &Observable{p: newPromise()}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := o.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFuture_Settles(t *testing.T) {
	p := newPromise()
	f := &Future{p: p}

	_, settled := f.Result()
	assert.False(t, settled)

	go p.resolve(Succeeded([]byte("ok")))

	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future never settled")
	}

	data, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
}

func TestNetworkError(t *testing.T) {
	assert.Equal(t, "Unauthorized action", ErrUnauthorized.Error())
	assert.Equal(t, "An unexpected error occured. Please try again later.", ErrUnexpected.Error())
	assert.Equal(t, "timeout", Failure("timeout").Error())

	assert.ErrorIs(t, Failure("timeout"), Failure(""))
	assert.ErrorIs(t, Failure("timeout"), Failure("timeout"))
	assert.NotErrorIs(t, Failure("timeout"), Failure("other"))
	assert.NotErrorIs(t, ErrUnauthorized, ErrUnexpected)
	assert.ErrorIs(t, &NetworkError{Kind: KindUnauthorized}, ErrUnauthorized)
}

func TestResult_Unwrap(t *testing.T) {
	data, err := Succeeded([]byte("x")).Unwrap()
	assert.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	data, err = Failed(ErrUnexpected).Unwrap()
	assert.Nil(t, data)
	assert.ErrorIs(t, err, ErrUnexpected)
}
