// Package fs is a native module exposing a directory tree to scripts. All
// paths resolve inside a root directory, and reads happen off the calling
// goroutine.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

const Name = "FileSystem"

// FileInfo is what stat and listDir report for each entry.
type FileInfo struct {
	Name  string
	Size  int64
	IsDir bool
	// ModTime is milliseconds since the Unix epoch.
	ModTime int64
}

var FileInfoCodec = codec.Struct("FileInfo",
	codec.FieldRef("name", codec.String, func(f *FileInfo) *string { return &f.Name }),
	codec.FieldRef("size", codec.Int64, func(f *FileInfo) *int64 { return &f.Size }),
	codec.FieldRef("isDir", codec.Bool, func(f *FileInfo) *bool { return &f.IsDir }),
	codec.FieldRef("modTime", codec.Int64, func(f *FileInfo) *int64 { return &f.ModTime }),
)

func newFileInfo(fi iofs.FileInfo) FileInfo {
	return FileInfo{
		Name:    fi.Name(),
		Size:    fi.Size(),
		IsDir:   fi.IsDir(),
		ModTime: fi.ModTime().UnixMilli(),
	}
}

type Options struct {
	// Root is the directory scripts may access. Required.
	Root string
	// Writable enables writeFile.
	Writable bool
	// MaxReadBytes caps readFile, 0 meaning 8 MiB.
	MaxReadBytes int64
	Logger       *slog.Logger
}

const defaultMaxReadBytes = 8 << 20

// Module is an open root. Close waits for outstanding reads.
type Module struct {
	root     *os.Root
	dir      string
	writable bool
	maxRead  int64
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Open opens opts.Root, which must be an existing directory.
func Open(opts Options) (*Module, error) {
	if opts.Root == "" {
		return nil, errors.New("fs: root directory is required")
	}
	dir, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("fs: resolve root: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("fs: open root: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxRead := opts.MaxReadBytes
	if maxRead <= 0 {
		maxRead = defaultMaxReadBytes
	}
	return &Module{
		root:     root,
		dir:      dir,
		writable: opts.Writable,
		maxRead:  maxRead,
		logger:   logger.With("module", Name),
	}, nil
}

// Provide registers the module:
//
//	root: string (constant)
//	writable: boolean (constant)
//	readFile(path): Promise<string>
//	writeFile(path, contents): Promise<number>, bytes written
//	stat(path, onSuccess, onError), onSuccess receiving a FileInfo
//	exists(path): boolean (sync)
//	listDir(path): Promise<FileInfo[]>, sorted by name
//
// Failures reject with {message, code, path}, code being one of ENOENT,
// EEXIST, EACCES, EISDIR, EFBIG, EROFS or EIO.
func (m *Module) Provide(b *bridge.ModuleBuilder) {
	b.AddConstant("root", dynvalue.String(m.dir))
	b.AddConstant("writable", dynvalue.Bool(m.writable))

	bridge.AddPromise(b, "readFile", bridge.Params1(codec.String), codec.String,
		func(_ context.Context, name string, promise bridge.Promise[string]) error {
			return m.async(func() {
				data, err := m.readFile(name)
				if err != nil {
					_ = promise.Reject(err)
					return
				}
				_ = promise.Resolve(string(data))
			})
		})

	bridge.AddPromise(b, "writeFile", bridge.Params2(codec.String, codec.String), codec.Int,
		func(_ context.Context, p codec.Tuple2[string, string], promise bridge.Promise[int]) error {
			if !m.writable {
				return pathError("writeFile", p.First, "EROFS", errors.New("file system is read-only"))
			}
			return m.async(func() {
				if err := m.root.WriteFile(clean(p.First), []byte(p.Second), 0o644); err != nil {
					_ = promise.Reject(wrap("writeFile", p.First, err))
					return
				}
				_ = promise.Resolve(len(p.Second))
			})
		})

	bridge.AddTwoCallbacks(b, "stat", bridge.Params1(codec.String), FileInfoCodec,
		func(_ context.Context, name string, resolve bridge.Resolver[FileInfo], reject bridge.Rejecter) error {
			fi, err := m.root.Stat(clean(name))
			if err != nil {
				return wrap("stat", name, err)
			}
			return resolve.Resolve(newFileInfo(fi))
		})

	bridge.AddSync(b, "exists", bridge.Params1(codec.String), codec.Bool,
		func(_ context.Context, name string) (bool, error) {
			_, err := m.root.Stat(clean(name))
			return err == nil, nil
		})

	bridge.AddPromise(b, "listDir", bridge.Params1(codec.String), codec.Slice(FileInfoCodec),
		func(_ context.Context, name string, promise bridge.Promise[[]FileInfo]) error {
			return m.async(func() {
				infos, err := m.listDir(name)
				if err != nil {
					_ = promise.Reject(err)
					return
				}
				_ = promise.Resolve(infos)
			})
		})
}

func (m *Module) readFile(name string) ([]byte, error) {
	f, err := m.root.Open(clean(name))
	if err != nil {
		return nil, wrap("readFile", name, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, wrap("readFile", name, err)
	}
	if fi.IsDir() {
		return nil, pathError("readFile", name, "EISDIR", errors.New("is a directory"))
	}
	if fi.Size() > m.maxRead {
		return nil, pathError("readFile", name, "EFBIG", fmt.Errorf("file is %d bytes, limit %d", fi.Size(), m.maxRead))
	}
	data, err := io.ReadAll(io.LimitReader(f, m.maxRead+1))
	if err != nil {
		return nil, wrap("readFile", name, err)
	}
	if int64(len(data)) > m.maxRead {
		return nil, pathError("readFile", name, "EFBIG", fmt.Errorf("file exceeds limit %d", m.maxRead))
	}
	m.logger.Debug("read file", "path", name, "bytes", len(data))
	return data, nil
}

func (m *Module) listDir(name string) ([]FileInfo, error) {
	f, err := m.root.Open(clean(name))
	if err != nil {
		return nil, wrap("listDir", name, err)
	}
	defer f.Close()
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, wrap("listDir", name, err)
	}
	infos := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			// removed since the directory was read
			continue
		}
		infos = append(infos, newFileInfo(fi))
	}
	slices.SortFunc(infos, func(a, b FileInfo) int { return strings.Compare(a.Name, b.Name) })
	return infos, nil
}

var errClosed = errors.New("fs: closed")

// async runs fn on a goroutine tracked by Close.
func (m *Module) async(fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
	return nil
}

// Close waits for outstanding operations, then closes the root.
func (m *Module) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
	return m.root.Close()
}

// clean maps script paths, which may start with "/", onto the root.
func clean(name string) string {
	name = strings.TrimLeft(filepath.ToSlash(name), "/")
	if name == "" {
		return "."
	}
	return filepath.FromSlash(name)
}

func wrap(op, name string, err error) *bridge.JSError {
	code := "EIO"
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		code = "ENOENT"
	case errors.Is(err, iofs.ErrExist):
		code = "EEXIST"
	case errors.Is(err, iofs.ErrPermission):
		code = "EACCES"
	}
	return pathError(op, name, code, err)
}

func pathError(op, name, code string, err error) *bridge.JSError {
	var pe *iofs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return bridge.NewJSError(fmt.Sprintf("%s %s: %v", op, name, err),
		dynvalue.Prop("code", dynvalue.String(code)),
		dynvalue.Prop("path", dynvalue.String(name)),
	)
}
