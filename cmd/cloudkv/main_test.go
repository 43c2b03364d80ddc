package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"

	"cloudkv/internal/remote"
	"cloudkv/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startStore(t *testing.T) (string, *storage.InMemoryStore) {
	t.Helper()
	store := storage.NewInMemoryStore(storage.DefaultLimits())
	lis, err := remote.Listen("127.0.0.1:0", store, remote.ServerOptions{ServerID: "test"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lis.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return lis.Addr(), store
}

func TestRun_ClientCommands(t *testing.T) {
	addr, store := startStore(t)
	ctx := context.Background()
	flags := []string{"--remote", addr, "--log-level", "error"}

	var out bytes.Buffer
	require.NoError(t, run(ctx, append([]string{"save"}, append(flags, "freeUserRemainingRequests", "7")...), &out, io.Discard))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, run(ctx, append([]string{"fetch"}, append(flags, "freeUserRemainingRequests")...), &out, io.Discard))
	assert.Equal(t, "7\n", out.String())

	require.NoError(t, run(ctx, append([]string{"delete"}, append(flags, "freeUserRemainingRequests")...), &out, io.Discard))
	err := run(ctx, append([]string{"fetch"}, append(flags, "freeUserRemainingRequests")...), &out, io.Discard)
	assert.ErrorIs(t, err, errNotFound)

	require.NoError(t, store.Set("stray", []byte{}))
	require.NoError(t, run(ctx, append([]string{"clear"}, flags...), &out, io.Discard))
	assert.Equal(t, 0, store.Len())
}

func TestRun_LargeIntegerRoundTrip(t *testing.T) {
	addr, _ := startStore(t)
	ctx := context.Background()
	flags := []string{"--remote", addr, "--log-level", "error"}

	require.NoError(t, run(ctx, append([]string{"save"}, append(flags, "freeUserRemainingRequests", "9223372036854775807")...), io.Discard, io.Discard))

	var out bytes.Buffer
	require.NoError(t, run(ctx, append([]string{"fetch"}, append(flags, "freeUserRemainingRequests")...), &out, io.Discard))
	assert.Equal(t, "9223372036854775807\n", out.String())
}

func TestRun_FetchUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	args := []string{"fetch", "--remote", addr, "--timeout", "500ms", "--log-level", "error", "freeUserRemainingRequests"}
	err = run(context.Background(), args, io.Discard, io.Discard)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	assert.NotErrorIs(t, err, errNotFound)
}

func TestRun_Usage(t *testing.T) {
	ctx := context.Background()

	assert.ErrorIs(t, run(ctx, nil, io.Discard, io.Discard), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"bogus"}, io.Discard, io.Discard), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"fetch"}, io.Discard, io.Discard), errUsage)
	assert.Error(t, run(ctx, []string{"fetch", "unknownKey"}, io.Discard, io.Discard))
	assert.Error(t, run(ctx, []string{"serve", "--backend", "sqlite"}, io.Discard, io.Discard))
}
