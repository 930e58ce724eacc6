package storage

import (
	"github.com/go-nufs/nufs/image"
	"github.com/go-nufs/nufs/modebits"
	"github.com/go-nufs/nufs/nferrors"
)

// Truncate resizes the inode at inodeIdx to size bytes, allocating or
// freeing blocks as needed and promoting/demoting between direct and
// indirect block addressing at the DirectBlockCount boundary. Truncating a
// directory would free its data block and orphan every child inode it
// still names, so that's rejected here the same way nufs_truncate rejects
// it before ever reaching storage_truncate.
func (e *Engine) Truncate(size uint32, inodeIdx int) error {
	inode := e.img.InodeByIndex(inodeIdx)
	if inode.IsDir() {
		return nferrors.New(nferrors.EISDIR)
	}
	if inode.Mode()&modebits.S_IWUSR == 0 {
		return nferrors.New(nferrors.EACCES)
	}

	needed := int(size+image.BlockSize-1) / image.BlockSize
	current := int(inode.BlockCount())

	switch {
	case needed == current:
		inode.SetSize(size)
		return nil
	case needed < current:
		e.shrink(inode, inodeIdx, current, needed)
	default:
		if err := e.grow(inode, current, needed); err != nil {
			return err
		}
	}

	inode.SetBlockCount(uint8(needed))
	inode.SetSize(size)
	return nil
}

func (e *Engine) shrink(inode image.Inode, inodeIdx, current, needed int) {
	blocks := e.img.BlocksOf(inodeIdx)
	for i := needed; i < current; i++ {
		e.img.BlockAllocator().Free(blocks[i])
	}

	if current > image.DirectBlockCount && needed <= image.DirectBlockCount {
		for i := 0; i < needed; i++ {
			inode.SetDBlock(i, blocks[i])
		}
		ib := inode.IBlock()
		e.img.BlockAllocator().Free(int(ib))
		inode.SetIBlock(0)
	}
}

// grow allocates the blocks needed to reach needed from current, rolling
// back exactly the prefix it managed to allocate on failure. It tracks the
// successfully allocated count explicitly via len(newBlocks) rather than
// treating every slot in a fixed-size array as allocated once any of them
// is, which is what lets the rollback free exactly what it allocated and
// nothing else.
func (e *Engine) grow(inode image.Inode, current, needed int) error {
	newCount := needed - current
	newBlocks := make([]int, 0, newCount)

	for i := 0; i < newCount; i++ {
		b, err := e.img.BlockAllocator().Allocate()
		if err != nil {
			for _, b := range newBlocks {
				e.img.BlockAllocator().Free(b)
			}
			return err
		}
		newBlocks = append(newBlocks, b)
	}

	promoting := current <= image.DirectBlockCount && needed > image.DirectBlockCount
	if promoting {
		ib, err := e.img.BlockAllocator().Allocate()
		if err != nil {
			for _, b := range newBlocks {
				e.img.BlockAllocator().Free(b)
			}
			return err
		}
		indirect := e.img.BlockByIndex(ib)
		for i := 0; i < current; i++ {
			indirect[i] = inode.DBlock(i)
		}
		inode.SetIBlock(uint8(ib))
	}

	if promoting || current > image.DirectBlockCount {
		indirect := e.img.BlockByIndex(int(inode.IBlock()))
		for i, b := range newBlocks {
			indirect[current+i] = byte(b)
		}
	} else {
		for i, b := range newBlocks {
			inode.SetDBlock(current+i, b)
		}
	}

	return nil
}
