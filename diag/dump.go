// Package diag provides operator-facing dumps of an image's bitmap and
// inode state. It has no role in the filesystem's correctness; it exists
// to let an operator inspect a stuck or corrupt image, the same job the
// original implementation's debug print_bitmap helper did ad hoc.
package diag

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/go-nufs/nufs/image"
)

// BitmapRow is one bit of a block or inode bitmap, flattened for CSV
// output.
type BitmapRow struct {
	Index     int  `csv:"index"`
	Allocated bool `csv:"allocated"`
}

// InodeRow summarizes one inode record for CSV output.
type InodeRow struct {
	Index      int    `csv:"index"`
	Allocated  bool   `csv:"allocated"`
	Mode       uint32 `csv:"mode"`
	Links      uint32 `csv:"links"`
	Size       uint32 `csv:"size"`
	BlockCount uint8  `csv:"block_count"`
	IBlock     uint8  `csv:"i_block"`
	ATime      uint32 `csv:"a_time"`
	MTime      uint32 `csv:"m_time"`
}

// DumpBlockBitmapCSV writes the block allocation bitmap to w as CSV.
func DumpBlockBitmapCSV(img *image.Image, w io.Writer) error {
	rows := make([]BitmapRow, image.BitmapSize)
	for i := range rows {
		rows[i] = BitmapRow{Index: i, Allocated: img.BlockAllocator().IsAllocated(i)}
	}
	return gocsv.Marshal(rows, w)
}

// DumpInodeBitmapCSV writes the inode allocation bitmap to w as CSV.
func DumpInodeBitmapCSV(img *image.Image, w io.Writer) error {
	rows := make([]BitmapRow, image.BitmapSize)
	for i := range rows {
		rows[i] = BitmapRow{Index: i, Allocated: img.InodeAllocator().IsAllocated(i)}
	}
	return gocsv.Marshal(rows, w)
}

// DumpInodesCSV writes every inode record in the inode table to w as CSV.
func DumpInodesCSV(img *image.Image, w io.Writer) error {
	rows := make([]InodeRow, image.BitmapSize)
	for i := range rows {
		inode := img.InodeByIndex(i)
		rows[i] = InodeRow{
			Index:      i,
			Allocated:  img.InodeAllocator().IsAllocated(i),
			Mode:       inode.Mode(),
			Links:      inode.Links(),
			Size:       inode.Size(),
			BlockCount: inode.BlockCount(),
			IBlock:     inode.IBlock(),
			ATime:      inode.ATime(),
			MTime:      inode.MTime(),
		}
	}
	return gocsv.Marshal(rows, w)
}
