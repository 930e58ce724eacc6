// Package storage implements the filesystem's core algorithms: path
// resolution, directory record management, and the inode-level read,
// write, truncate, link, unlink, mknod, and rename operations. Every
// operation is expressed in terms of an *image.Image and returns
// *nferrors.DriverError on failure, mirroring the negated-errno contract
// the bridge and CLI layers expect.
//
// Engine is not safe for concurrent use. A caller needing concurrency wraps
// calls to it in one coarse mutex; Engine itself assumes single-threaded,
// non-reentrant access, matching the single-user scope of the filesystem
// it implements.
package storage

import (
	"time"

	"github.com/go-nufs/nufs/image"
	"github.com/go-nufs/nufs/modebits"
	"github.com/go-nufs/nufs/nferrors"
	"github.com/go-nufs/nufs/pathutil"
)

// Engine is the storage layer for one open image.
type Engine struct {
	img *image.Image
}

// New wraps img as a storage Engine.
func New(img *image.Image) *Engine {
	return &Engine{img: img}
}

// Image returns the underlying image, for callers (the bridge, tests) that
// need direct access to inode/block accessors beyond what Engine exposes.
func (e *Engine) Image() *image.Image {
	return e.img
}

const rootInodeIdx = 0

// Access resolves path to an inode index, walking one directory level per
// path component starting from the root. It panics if path-walk ever
// has to descend through a non-directory inode (a path component other
// than the last naming a file, or corrupt directory records), which the
// filesystem treats as a structural bug rather than a recoverable error.
func (e *Engine) Access(path string) (int, error) {
	current := rootInodeIdx
	for _, seg := range pathutil.Delimit(path) {
		inode := e.img.InodeByIndex(current)
		if !inode.IsDir() {
			panic("storage: path walk entered a non-directory inode")
		}

		next, ok := e.lookupInDir(current, seg)
		if !ok {
			return 0, nferrors.New(nferrors.ENOENT)
		}
		current = next
	}
	return current, nil
}

// lookupInDir scans every block of the directory at dirInodeIdx for a
// record named name.
func (e *Engine) lookupInDir(dirInodeIdx int, name string) (int, bool) {
	for _, blockIdx := range e.img.BlocksOf(dirInodeIdx) {
		block := e.img.BlockByIndex(blockIdx)
		for _, rec := range walkDirBlock(block) {
			if rec.Name == name {
				return rec.InodeIdx, true
			}
		}
	}
	return 0, false
}

// ReadDir returns the (name, inode index) pairs stored in the directory at
// dirInodeIdx.
func (e *Engine) ReadDir(dirInodeIdx int) ([]DirEntry, error) {
	inode := e.img.InodeByIndex(dirInodeIdx)
	if !inode.IsDir() {
		return nil, nferrors.New(nferrors.ENOTDIR)
	}
	if inode.Mode()&modebits.S_IXUSR == 0 {
		return nil, nferrors.New(nferrors.EACCES)
	}

	var entries []DirEntry
	for _, blockIdx := range e.img.BlocksOf(dirInodeIdx) {
		block := e.img.BlockByIndex(blockIdx)
		for _, rec := range walkDirBlock(block) {
			entries = append(entries, DirEntry{Name: rec.Name, InodeIdx: rec.InodeIdx})
		}
	}
	return entries, nil
}

// DirEntry is one (name, inode index) pair returned by ReadDir.
type DirEntry struct {
	Name     string
	InodeIdx int
}

// GetAttr returns the inode view for inodeIdx. It's a thin pass-through; the
// bridge uses it to build its own attribute structures.
func (e *Engine) GetAttr(inodeIdx int) image.Inode {
	return e.img.InodeByIndex(inodeIdx)
}

// Chmod replaces the permission bits of path's inode, leaving its type bits
// untouched.
func (e *Engine) Chmod(path string, mode uint32) error {
	idx, err := e.Access(path)
	if err != nil {
		return err
	}
	inode := e.img.InodeByIndex(idx)
	inode.SetMode((inode.Mode() & modebits.S_IFMT) | (mode &^ modebits.S_IFMT))
	return nil
}

// Utimens sets path's access and modification times directly.
func (e *Engine) Utimens(path string, atime, mtime time.Time) error {
	idx, err := e.Access(path)
	if err != nil {
		return err
	}
	inode := e.img.InodeByIndex(idx)
	inode.SetATime(uint32(atime.Unix()))
	inode.SetMTime(uint32(mtime.Unix()))
	return nil
}

func now() uint32 {
	return uint32(time.Now().Unix())
}
