package message

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/schema"
	"github.com/anirudhraja/protocore/wire"
)

var (
	corpusOnce sync.Once
	corpusPool *descriptor.Pool
	corpusErr  error
)

// testPool builds the schemas under testdata once per test binary.
func testPool(t testing.TB) *descriptor.Pool {
	t.Helper()
	corpusOnce.Do(func() {
		var files []*schema.ProtoFile
		for _, name := range []string{"legacy.proto", "modern.proto"} {
			f, err := os.Open(filepath.Join("testdata", name))
			if err != nil {
				corpusErr = err
				return
			}
			pf, err := schema.ParseProto(name, f)
			f.Close()
			if err != nil {
				corpusErr = err
				return
			}
			files = append(files, pf)
		}
		corpusPool, corpusErr = descriptor.Build(files...)
	})
	require.NoError(t, corpusErr)
	return corpusPool
}

func findMessage(t testing.TB, name string) *descriptor.Message {
	t.Helper()
	md := testPool(t).FindMessage(name)
	require.NotNil(t, md, "message %s", name)
	return md
}

func field(t testing.TB, md *descriptor.Message, name string) *descriptor.Field {
	t.Helper()
	fd := md.FieldByName(name)
	require.NotNil(t, fd, "field %s.%s", md.FullName(), name)
	return fd
}

// poolResolver resolves extensions from a descriptor pool.
type poolResolver struct{ pool *descriptor.Pool }

func (r poolResolver) FindExtensionByNumber(extendee string, n wire.FieldNumber) *descriptor.Field {
	return r.pool.FindExtension(extendee, n)
}
