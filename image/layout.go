package image

import "github.com/go-nufs/nufs/bitmap"

// Fixed geometry of the image file. These numbers are chosen so the metadata
// region and the block region both fit inside one 1 MiB image.
const (
	BlockSize        = 4096
	BlockCount       = 256
	DiskSpace        = BlockSize * BlockCount
	BitmapSize       = 253
	DirectBlockCount = 8

	// InitFlag marks an image that has already been through root
	// initialization. Anything else in that byte means the image is fresh
	// and root_init needs to run.
	InitFlag = 0x99
)

// On-disk size of one inode record: mode(4) + links(4) + size(4) +
// block_count(1) + d_blocks(8) + i_block(1) + a_time(4) + m_time(4).
const inodeSize = 30

var (
	initFlagOffset = 0

	blockBitmapOffset = 1
	blockBitmapLen    = bitmap.ByteLen(BitmapSize)

	inodeBitmapOffset = blockBitmapOffset + blockBitmapLen
	inodeBitmapLen    = bitmap.ByteLen(BitmapSize)

	inodeTableOffset = inodeBitmapOffset + inodeBitmapLen
	inodeTableLen    = BitmapSize * inodeSize

	blockRegionOffset = alignUp(inodeTableOffset+inodeTableLen, BlockSize)
	blockRegionLen    = BitmapSize * BlockSize
)

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

func init() {
	if blockRegionOffset+blockRegionLen > DiskSpace {
		panic("image: metadata and block region layout does not fit inside DiskSpace")
	}
}
