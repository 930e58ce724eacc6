package storage

import (
	"github.com/go-nufs/nufs/image"
	"github.com/go-nufs/nufs/modebits"
	"github.com/go-nufs/nufs/nferrors"
	"github.com/go-nufs/nufs/pathutil"
)

// Mknod creates a new file or directory at path with the given mode. The
// parent directory must already exist and be searchable (owner-execute) by
// its owner.
func (e *Engine) Mknod(path string, mode uint32) (int, error) {
	parentPath := pathutil.ParentOf(path)
	if parentPath == "" {
		parentPath = "/"
	}
	leaf := pathutil.Leaf(path)

	parentIdx, err := e.Access(parentPath)
	if err != nil {
		return 0, err
	}
	parent := e.img.InodeByIndex(parentIdx)
	if !parent.IsDir() {
		return 0, nferrors.New(nferrors.ENOTDIR)
	}
	if parent.Mode()&modebits.S_IXUSR == 0 {
		return 0, nferrors.New(nferrors.EACCES)
	}

	newIdx, err := e.directoryAdd(leaf, parentIdx, true, 0)
	if err != nil {
		return 0, err
	}

	inode := e.img.InodeByIndex(newIdx)
	inode.SetMode(mode)
	inode.SetLinks(1)
	inode.SetIBlock(0)

	if modebits.IsDir(mode) {
		blockIdx, err := e.img.BlockAllocator().Allocate()
		if err != nil {
			return 0, err
		}
		inode.SetBlockCount(1)
		inode.SetDBlock(0, blockIdx)
		inode.SetSize(image.BlockSize)
		block := e.img.BlockByIndex(blockIdx)
		block[0] = 0
	} else {
		inode.SetBlockCount(0)
		inode.SetSize(0)
	}

	ts := now()
	inode.SetATime(ts)
	inode.SetMTime(ts)
	return newIdx, nil
}

// Mkdir creates a directory at path, forcing the directory type bit on top
// of the caller-supplied permission bits.
func (e *Engine) Mkdir(path string, perm uint32) (int, error) {
	return e.Mknod(path, uint32(modebits.S_IFDIR)|(perm&^uint32(modebits.S_IFMT)))
}

// Link adds a second directory entry pointing at the same inode as from,
// increasing its link count by one.
func (e *Engine) Link(from, to string) error {
	fromIdx, err := e.Access(from)
	if err != nil {
		return err
	}

	parentPath := pathutil.ParentOf(to)
	if parentPath == "" {
		parentPath = "/"
	}
	parentIdx, err := e.Access(parentPath)
	if err != nil {
		return err
	}
	parent := e.img.InodeByIndex(parentIdx)
	if !parent.IsDir() {
		return nferrors.New(nferrors.ENOTDIR)
	}

	if _, err := e.directoryAdd(pathutil.Leaf(to), parentIdx, false, fromIdx); err != nil {
		return err
	}

	inode := e.img.InodeByIndex(fromIdx)
	inode.SetLinks(inode.Links() + 1)
	return nil
}

// Unlink removes path's directory entry and, once its link count reaches
// zero, frees its blocks and its inode.
func (e *Engine) Unlink(path string) error {
	idx, err := e.Access(path)
	if err != nil {
		return err
	}

	if err := e.directoryRemove(path); err != nil {
		return err
	}

	inode := e.img.InodeByIndex(idx)
	inode.SetLinks(inode.Links() - 1)
	if inode.Links() != 0 {
		return nil
	}

	blocks := e.img.BlocksOf(idx)
	for _, b := range blocks {
		e.img.BlockAllocator().Free(b)
	}
	if inode.BlockCount() > image.DirectBlockCount {
		e.img.BlockAllocator().Free(int(inode.IBlock()))
		inode.SetIBlock(0)
	}
	inode.SetBlockCount(0)
	return e.img.InodeAllocator().Free(idx)
}

// Rmdir removes the empty directory at path. Removing a non-empty
// directory would orphan its children's inodes, so Rmdir refuses unless
// the directory holds nothing but the empty-directory terminator.
func (e *Engine) Rmdir(path string) error {
	idx, err := e.Access(path)
	if err != nil {
		return err
	}
	inode := e.img.InodeByIndex(idx)
	if !inode.IsDir() {
		return nferrors.New(nferrors.ENOTDIR)
	}

	entries, err := e.ReadDir(idx)
	if err != nil {
		return err
	}
	if len(entries) != 0 {
		return nferrors.New(nferrors.ENOTEMPTY)
	}

	return e.Unlink(path)
}

// Rename moves the entry at from to to, which must not already exist.
func (e *Engine) Rename(from, to string) error {
	fromIdx, err := e.Access(from)
	if err != nil {
		return err
	}

	parentPath := pathutil.ParentOf(to)
	if parentPath == "" {
		parentPath = "/"
	}
	parentIdx, err := e.Access(parentPath)
	if err != nil {
		return err
	}

	if err := e.directoryRemove(from); err != nil {
		return err
	}
	_, err = e.directoryAdd(pathutil.Leaf(to), parentIdx, false, fromIdx)
	return err
}

// directoryAdd adds a record named name to the directory at parentIdx.
// When allocateNew is true a fresh inode is allocated for the new entry and
// its index returned; otherwise the entry points at existingInode (the
// Link/Rename case).
//
// The inode bit is only committed once a directory block with enough
// trailing space is actually found: allocating it up front and rolling
// back on EDQUOT would leave a window where a failed creation still shows
// up as a used inode.
func (e *Engine) directoryAdd(name string, parentIdx int, allocateNew bool, existingInode int) (int, error) {
	recLen := len(name) + 3 // name + NUL + inode byte + terminator NUL

	for _, blockIdx := range e.img.BlocksOf(parentIdx) {
		block := e.img.BlockByIndex(blockIdx)
		recs := walkDirBlock(block)
		end := endOfRecords(recs)

		if end+recLen > len(block) {
			continue
		}

		itemInode := existingInode
		if allocateNew {
			idx, err := e.img.InodeAllocator().Allocate()
			if err != nil {
				return 0, err
			}
			itemInode = idx
		}

		copy(block[end:], name)
		block[end+len(name)] = 0
		block[end+len(name)+1] = byte(itemInode)
		block[end+len(name)+2] = 0

		return itemInode, nil
	}

	return 0, nferrors.New(nferrors.EDQUOT)
}

// directoryRemove finds path's entry in its parent directory and closes
// the gap by shifting every following record left over it.
func (e *Engine) directoryRemove(path string) error {
	parentPath := pathutil.ParentOf(path)
	if parentPath == "" {
		parentPath = "/"
	}
	leaf := pathutil.Leaf(path)

	parentIdx, err := e.Access(parentPath)
	if err != nil {
		return err
	}

	for _, blockIdx := range e.img.BlocksOf(parentIdx) {
		block := e.img.BlockByIndex(blockIdx)
		recs := walkDirBlock(block)

		for _, rec := range recs {
			if rec.Name != leaf {
				continue
			}
			end := endOfRecords(recs)
			tailStart := rec.Offset + rec.RecordLen
			tailLen := end - tailStart

			copy(block[rec.Offset:], block[tailStart:end])
			for j := rec.Offset + tailLen; j < end; j++ {
				block[j] = 0
			}
			return nil
		}
	}

	return nferrors.New(nferrors.ENOENT)
}
