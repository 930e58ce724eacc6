package nufstest

import (
	"fmt"

	"github.com/go-nufs/nufs/image"
	"github.com/hashicorp/go-multierror"
)

// CheckInvariants walks the live image and reports every structural
// invariant it finds violated, rather than stopping at the first one. It
// checks:
//
//  1. The root inode (index 0) is always allocated and always a directory.
//  2. Every inode the inode bitmap marks allocated has a nonzero link count,
//     and vice versa.
//  3. No block is referenced by more than one inode (no double allocation).
//  4. Every block an inode references is marked allocated in the block
//     bitmap.
//  5. An inode's block_count agrees with whether it addresses blocks
//     directly or through its indirect block: block_count <= 8 implies the
//     indirect block field is unused, and block_count > 8 implies the
//     indirect block itself is allocated and distinct from every block it
//     lists.
//  6. Every directory's blocks contain a well-formed, terminated sequence
//     of records (no record runs past the end of its block).
//  7. Every directory record names an inode that is itself allocated.
func CheckInvariants(img *image.Image) error {
	var result error

	blockOwners := make(map[int]int) // block index -> owning inode index

	for i := 0; i < image.BitmapSize; i++ {
		allocated := img.InodeAllocator().IsAllocated(i)
		inode := img.InodeByIndex(i)

		if i == 0 {
			if !allocated {
				result = multierror.Append(result, fmt.Errorf("root inode 0 is not allocated"))
			}
			if !inode.IsDir() {
				result = multierror.Append(result, fmt.Errorf("root inode 0 is not a directory"))
			}
		}

		if allocated && inode.Links() == 0 {
			result = multierror.Append(result, fmt.Errorf("inode %d is allocated but has zero links", i))
		}
		if !allocated && inode.Links() != 0 {
			result = multierror.Append(result, fmt.Errorf("inode %d is free but has nonzero links", i))
		}
		if !allocated {
			continue
		}

		count := int(inode.BlockCount())
		if count > image.DirectBlockCount {
			ib := int(inode.IBlock())
			if !img.BlockAllocator().IsAllocated(ib) {
				result = multierror.Append(result, fmt.Errorf("inode %d's indirect block %d is not allocated", i, ib))
			}
			if owner, seen := blockOwners[ib]; seen && owner != i {
				result = multierror.Append(result, fmt.Errorf("indirect block %d shared by inodes %d and %d", ib, owner, i))
			}
			blockOwners[ib] = i
		} else if inode.IBlock() != 0 {
			result = multierror.Append(result, fmt.Errorf("inode %d has %d blocks but indirect block field %d", i, count, inode.IBlock()))
		}

		for _, b := range img.BlocksOf(i) {
			if count > image.DirectBlockCount && b == int(inode.IBlock()) {
				result = multierror.Append(result, fmt.Errorf("inode %d lists its indirect block %d as a data block", i, b))
			}
			if !img.BlockAllocator().IsAllocated(b) {
				result = multierror.Append(result, fmt.Errorf("inode %d references unallocated block %d", i, b))
				continue
			}
			if owner, seen := blockOwners[b]; seen && owner != i {
				result = multierror.Append(result, fmt.Errorf("block %d shared by inodes %d and %d", b, owner, i))
			}
			blockOwners[b] = i
		}

		if inode.IsDir() {
			if err := checkDirectoryRecords(img, i); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	return result
}

func checkDirectoryRecords(img *image.Image, dirInodeIdx int) error {
	var result error
	for _, blockIdx := range img.BlocksOf(dirInodeIdx) {
		block := img.BlockByIndex(blockIdx)
		off := 0
		for off < len(block) {
			nameEnd := -1
			for i, c := range block[off:] {
				if c == 0 {
					nameEnd = i
					break
				}
			}
			if nameEnd < 0 {
				result = multierror.Append(result, fmt.Errorf(
					"directory inode %d block %d: unterminated record at offset %d", dirInodeIdx, blockIdx, off))
				break
			}
			if nameEnd == 0 {
				break // block terminator
			}
			childIdx := int(block[off+nameEnd+1])
			if !img.InodeAllocator().IsAllocated(childIdx) {
				result = multierror.Append(result, fmt.Errorf(
					"directory inode %d names unallocated inode %d", dirInodeIdx, childIdx))
			}
			off += nameEnd + 2
		}
	}
	return result
}
