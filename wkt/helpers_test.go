package wkt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/schema"
)

var (
	poolOnce sync.Once
	pool     *descriptor.Pool
	poolErr  error
)

func wellKnownPool(t *testing.T) *descriptor.Pool {
	t.Helper()
	poolOnce.Do(func() {
		pool, poolErr = descriptor.Build(schema.WellKnownFiles()...)
	})
	require.NoError(t, poolErr)
	return pool
}

func wellKnown(t *testing.T, name string) *descriptor.Message {
	t.Helper()
	md := wellKnownPool(t).FindMessage(name)
	require.NotNil(t, md, name)
	return md
}
