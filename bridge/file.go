package bridge

import (
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
)

// file is the per-open-handle object go-fuse dispatches Read/Write/Truncate
// calls to. It has no state of its own beyond which path it was opened
// against; every operation goes straight back through the shared engine
// under the FS's mutex, since the engine has no notion of an open file
// handle distinct from the path itself.
type file struct {
	nodefs.File

	fs   *FS
	path string
}

func newFile(fs *FS, path string) nodefs.File {
	return &file{File: nodefs.NewDefaultFile(), fs: fs, path: path}
}

func (f *file) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	n, err := f.fs.eng.Read(f.path, dest, off)
	if err != nil {
		return nil, statusFromError(err)
	}
	return fuse.ReadResultData(dest[:n]), fuse.OK
}

func (f *file) Write(data []byte, off int64) (uint32, fuse.Status) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	n, err := f.fs.eng.Write(f.path, data, off)
	if err != nil {
		return 0, statusFromError(err)
	}
	return uint32(n), fuse.OK
}

func (f *file) Truncate(size uint64) fuse.Status {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	idx, err := f.fs.eng.Access(f.path)
	if err != nil {
		return statusFromError(err)
	}
	return statusFromError(f.fs.eng.Truncate(uint32(size), idx))
}

func (f *file) GetAttr(out *fuse.Attr) fuse.Status {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	idx, err := f.fs.eng.Access(f.path)
	if err != nil {
		return statusFromError(err)
	}
	inode := f.fs.eng.GetAttr(idx)
	out.Ino = uint64(idx)
	out.Size = uint64(inode.Size())
	out.Mode = inode.Mode()
	out.Nlink = inode.Links()
	out.Atime = uint64(inode.ATime())
	out.Mtime = uint64(inode.MTime())
	return fuse.OK
}

func (f *file) Flush() fuse.Status {
	return fuse.OK
}

func (f *file) Fsync(flags int) fuse.Status {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	return statusFromError(f.fs.eng.Image().Sync())
}
