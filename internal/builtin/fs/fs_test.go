package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
	"github.com/joeycumines/go-nativebridge/internal/testutil"
)

type fixture struct {
	dir string
	mod *Module
	h   *bridge.Host
	out *testutil.Outbound
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello, world"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("bb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a.txt"), []byte("a"), 0o644))

	opts.Root = dir
	m, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	reg := bridge.NewRegistry()
	reg.MustRegister(Name, m.Provide)
	h, out, _ := testutil.NewHost(t, reg)
	return &fixture{dir: dir, mod: m, h: h, out: out}
}

func (f *fixture) call(t *testing.T, method string, resolve int64, args ...string) bridge.ResultFrame {
	t.Helper()
	items := make([]dynvalue.Value, 0, len(args)+2)
	for _, a := range args {
		items = append(items, dynvalue.String(a))
	}
	items = append(items, dynvalue.Int64(resolve), dynvalue.Int64(resolve+1))
	require.NoError(t, f.h.InvokeByName(context.Background(), Name, method, dynvalue.NewArray(items...)))
	return f.out.WaitResult(t, resolve, resolve+1)
}

func errorCode(t *testing.T, r bridge.ResultFrame) string {
	t.Helper()
	p := bridge.ParseErrorPayload(r.Args.AsArray().Items()[0])
	for _, e := range p.Extra {
		if e.Key == "code" {
			return e.Value.AsString()
		}
	}
	return ""
}

func TestOpenRequiresDirectory(t *testing.T) {
	t.Parallel()
	_, err := Open(Options{})
	require.EqualError(t, err, "fs: root directory is required")

	_, err = Open(Options{Root: filepath.Join(t.TempDir(), "missing")})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	r := f.call(t, "readFile", 1, "hello.txt")
	assert.Equal(t, int64(1), r.ChannelID)
	assert.Equal(t, `["hello, world"]`, r.Args.String())

	r = f.call(t, "readFile", 3, "/sub/a.txt")
	assert.Equal(t, `["a"]`, r.Args.String())

	r = f.call(t, "readFile", 5, "nope.txt")
	assert.Equal(t, int64(6), r.ChannelID)
	assert.Equal(t, "ENOENT", errorCode(t, r))

	r = f.call(t, "readFile", 7, "sub")
	assert.Equal(t, "EISDIR", errorCode(t, r))
}

func TestReadFileLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{MaxReadBytes: 4})
	r := f.call(t, "readFile", 1, "hello.txt")
	assert.Equal(t, int64(2), r.ChannelID)
	assert.Equal(t, "EFBIG", errorCode(t, r))
}

func TestPathsStayInsideRoot(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	outside := filepath.Join(filepath.Dir(f.dir), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	t.Cleanup(func() { _ = os.Remove(outside) })

	r := f.call(t, "readFile", 1, "../outside.txt")
	assert.Equal(t, int64(2), r.ChannelID)
	assert.NotContains(t, r.Args.String(), "secret")
}

func TestStat(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})

	r := f.call(t, "stat", 1, "hello.txt")
	require.Equal(t, int64(1), r.ChannelID)
	info, err := codec.Unmarshal(FileInfoCodec, r.Args.AsArray().Items()[0])
	require.NoError(t, err)
	want := FileInfo{Name: "hello.txt", Size: 12}
	if diff := cmp.Diff(want, info, cmpopts.IgnoreFields(FileInfo{}, "ModTime")); diff != "" {
		t.Errorf("stat mismatch (-want +got):\n%s", diff)
	}
	assert.Positive(t, info.ModTime)

	r = f.call(t, "stat", 3, "missing")
	require.Equal(t, int64(4), r.ChannelID)
	p := bridge.ParseErrorPayload(r.Args.AsArray().Items()[0])
	assert.True(t, strings.HasPrefix(p.Message, "stat missing: "), p.Message)
	assert.Equal(t, "ENOENT", errorCode(t, r))
}

func TestExists(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	for name, want := range map[string]bool{
		"hello.txt": true,
		"sub":       true,
		"/":         true,
		"sub/c.txt": false,
		"../etc":    false,
	} {
		v, err := f.h.InvokeSyncByName(context.Background(), Name, "exists", dynvalue.NewArray(dynvalue.String(name)))
		require.NoError(t, err)
		assert.Equal(t, want, v.AsBoolean(), name)
	}
}

func TestListDir(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	r := f.call(t, "listDir", 1, "sub")
	require.Equal(t, int64(1), r.ChannelID)
	infos, err := codec.Unmarshal(codec.Slice(FileInfoCodec), r.Args.AsArray().Items()[0])
	require.NoError(t, err)
	want := []FileInfo{{Name: "a.txt", Size: 1}, {Name: "b.txt", Size: 2}}
	if diff := cmp.Diff(want, infos, cmpopts.IgnoreFields(FileInfo{}, "ModTime")); diff != "" {
		t.Errorf("listDir mismatch (-want +got):\n%s", diff)
	}

	r = f.call(t, "listDir", 3, "")
	infos, err = codec.Unmarshal(codec.Slice(FileInfoCodec), r.Args.AsArray().Items()[0])
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "hello.txt", infos[0].Name)
	assert.True(t, infos[1].IsDir)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	ro := newFixture(t, Options{})
	r := ro.call(t, "writeFile", 1, "new.txt", "data")
	assert.Equal(t, int64(2), r.ChannelID)
	assert.Equal(t, "EROFS", errorCode(t, r))
	assert.NoFileExists(t, filepath.Join(ro.dir, "new.txt"))

	rw := newFixture(t, Options{Writable: true})
	r = rw.call(t, "writeFile", 1, "new.txt", "data")
	assert.Equal(t, `[4]`, r.Args.String())
	data, err := os.ReadFile(filepath.Join(rw.dir, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	c, ok := rw.h.Constants(Name)
	require.True(t, ok)
	w, _ := c.AsObject().Get("writable")
	assert.True(t, w.AsBoolean())
}

func TestClosedModuleRejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t, Options{})
	require.NoError(t, f.mod.Close())
	require.NoError(t, f.mod.Close())
	r := f.call(t, "readFile", 1, "hello.txt")
	assert.Equal(t, `[{"message":"fs: closed"}]`, r.Args.String())
}
