// Package bridge adapts a *storage.Engine to go-fuse's path-based
// filesystem interface. The storage engine itself is single-threaded and
// non-reentrant; FS is what imposes the one coarse mutex that makes it
// safe to call from FUSE's concurrent request handlers.
package bridge

import (
	"sync"
	"time"

	"github.com/go-nufs/nufs/modebits"
	"github.com/go-nufs/nufs/nferrors"
	"github.com/go-nufs/nufs/storage"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"github.com/sirupsen/logrus"
)

// FS implements pathfs.FileSystem on top of a storage.Engine. Every
// exported method takes the engine's one mutex before touching the image,
// since the engine itself assumes single-threaded access.
type FS struct {
	pathfs.FileSystem

	mu  sync.Mutex
	eng *storage.Engine
	log *logrus.Entry
}

// New wraps eng as a FUSE-mountable filesystem.
func New(eng *storage.Engine, log *logrus.Entry) *FS {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FS{
		FileSystem: pathfs.NewDefaultFileSystem(),
		eng:        eng,
		log:        log,
	}
}

func statusFromError(err error) fuse.Status {
	if err == nil {
		return fuse.OK
	}
	return fuse.Status(nferrors.AsErrno(err) * -1)
}

func fusePath(name string) string {
	return "/" + name
}

func (fs *FS) String() string {
	return "nufs"
}

func (fs *FS) GetAttr(name string, _ *fuse.Context) (*fuse.Attr, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, err := fs.eng.Access(fusePath(name))
	if err != nil {
		return nil, statusFromError(err)
	}
	inode := fs.eng.GetAttr(idx)

	attr := &fuse.Attr{
		Ino:   uint64(idx),
		Size:  uint64(inode.Size()),
		Mode:  inode.Mode(),
		Nlink: inode.Links(),
		Atime: uint64(inode.ATime()),
		Mtime: uint64(inode.MTime()),
	}
	return attr, fuse.OK
}

func (fs *FS) Access(name string, mode uint32, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.eng.Access(fusePath(name))
	return statusFromError(err)
}

func (fs *FS) Chmod(name string, mode uint32, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return statusFromError(fs.eng.Chmod(fusePath(name), mode))
}

func (fs *FS) Utimens(name string, atime, mtime *time.Time, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var a, m time.Time
	if atime != nil {
		a = *atime
	}
	if mtime != nil {
		m = *mtime
	}
	return statusFromError(fs.eng.Utimens(fusePath(name), a, m))
}

func (fs *FS) Truncate(name string, size uint64, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, err := fs.eng.Access(fusePath(name))
	if err != nil {
		return statusFromError(err)
	}
	return statusFromError(fs.eng.Truncate(uint32(size), idx))
}

func (fs *FS) Mkdir(name string, mode uint32, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.eng.Mkdir(fusePath(name), mode)
	return statusFromError(err)
}

func (fs *FS) Mknod(name string, mode uint32, dev uint32, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.eng.Mknod(fusePath(name), mode)
	return statusFromError(err)
}

func (fs *FS) Rename(oldName, newName string, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return statusFromError(fs.eng.Rename(fusePath(oldName), fusePath(newName)))
}

func (fs *FS) Rmdir(name string, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return statusFromError(fs.eng.Rmdir(fusePath(name)))
}

func (fs *FS) Unlink(name string, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return statusFromError(fs.eng.Unlink(fusePath(name)))
}

func (fs *FS) Link(oldName, newName string, _ *fuse.Context) fuse.Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return statusFromError(fs.eng.Link(fusePath(oldName), fusePath(newName)))
}

func (fs *FS) OpenDir(name string, _ *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, err := fs.eng.Access(fusePath(name))
	if err != nil {
		return nil, statusFromError(err)
	}
	dirEntries, err := fs.eng.ReadDir(idx)
	if err != nil {
		return nil, statusFromError(err)
	}

	out := make([]fuse.DirEntry, 0, len(dirEntries))
	for _, d := range dirEntries {
		mode := fs.eng.GetAttr(d.InodeIdx).Mode()
		out = append(out, fuse.DirEntry{Name: d.Name, Mode: mode})
	}
	return out, fuse.OK
}

func (fs *FS) Open(name string, flags uint32, _ *fuse.Context) (nodefs.File, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.eng.Access(fusePath(name))
	if err != nil {
		return nil, statusFromError(err)
	}
	return newFile(fs, fusePath(name)), fuse.OK
}

func (fs *FS) Create(name string, flags uint32, mode uint32, _ *fuse.Context) (nodefs.File, fuse.Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.eng.Mknod(fusePath(name), uint32(modebits.S_IFREG)|mode)
	if err != nil {
		return nil, statusFromError(err)
	}
	return newFile(fs, fusePath(name)), fuse.OK
}

func (fs *FS) OnMount(nodeFs *pathfs.PathNodeFs) {
	fs.log.Info("nufs mounted")
}

func (fs *FS) OnUnmount() {
	fs.log.Info("nufs unmounted")
}
