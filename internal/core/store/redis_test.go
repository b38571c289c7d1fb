package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis("redis://"+mr.Addr(), time.Second)
	require.NoError(t, err)
	defer r.Close()

	assert.NoError(t, r.Ping(context.Background()))
	assert.NotNil(t, r.Client())
}

func TestRedis_PingUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	r, err := NewRedis("redis://"+addr, 200*time.Millisecond)
	require.NoError(t, err)
	defer r.Close()

	err = r.Ping(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestRedis_Bound(t *testing.T) {
	r := &Redis{timeout: 50 * time.Millisecond}

	ctx, cancel := r.Bound(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 40*time.Millisecond)

	unbounded := &Redis{}
	ctx2, cancel2 := unbounded.Bound(context.Background())
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok)
}

func TestRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis("invalid://url", time.Second)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
}
