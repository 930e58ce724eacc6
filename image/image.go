// Package image owns the memory-mapped region backing one filesystem image:
// the init flag, the block and inode bitmaps, the inode table, and the
// block region, plus root directory initialization on a fresh image.
package image

import (
	"fmt"
	"io"
	"os"

	"github.com/go-nufs/nufs/bitmap"
	"github.com/go-nufs/nufs/modebits"
	"github.com/noxer/bytewriter"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Image is the mapped region of one nufs image file, plus the allocators
// that manage its block and inode bitmaps. All mutations made through an
// Image's accessors are visible immediately, the same way writes through a
// memory-mapped pointer are in the original implementation.
type Image struct {
	data []byte

	blockAlloc bitmap.Allocator
	inodeAlloc bitmap.Allocator

	file   *os.File
	stream io.ReadWriteSeeker

	log *logrus.Entry
}

// Open opens (creating if necessary) the image file at path, maps it
// MAP_SHARED, and runs root initialization if the image is fresh.
func Open(path string, log *logrus.Entry) (*Image, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("image: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < DiskSpace {
		if err := f.Truncate(DiskSpace); err != nil {
			f.Close()
			return nil, fmt.Errorf("image: truncate %s: %w", path, err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, DiskSpace, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image: mmap %s: %w", path, err)
	}

	img, err := newFromBuffer(data, log)
	if err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}
	img.file = f

	log.WithField("path", path).Debug("image opened")
	return img, nil
}

// NewFromStream builds an Image backed by an in-memory buffer read from rws,
// rather than a real mmap'd file. This is how tests construct throwaway
// images without touching the filesystem: rws is typically a
// bytesextra.ReadWriteSeeker wrapping a plain []byte.
func NewFromStream(rws io.ReadWriteSeeker, log *logrus.Entry) (*Image, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if _, err := rws.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, DiskSpace)
	if _, err := io.ReadFull(rws, buf); err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}

	img, err := newFromBuffer(buf, log)
	if err != nil {
		return nil, err
	}
	img.stream = rws
	return img, nil
}

func newFromBuffer(data []byte, log *logrus.Entry) (*Image, error) {
	if len(data) != DiskSpace {
		return nil, fmt.Errorf("image: buffer is %d bytes, want %d", len(data), DiskSpace)
	}

	img := &Image{data: data, log: log}
	img.blockAlloc = bitmap.NewAllocator(
		data[blockBitmapOffset:blockBitmapOffset+blockBitmapLen], BitmapSize)
	img.inodeAlloc = bitmap.NewAllocator(
		data[inodeBitmapOffset:inodeBitmapOffset+inodeBitmapLen], BitmapSize)

	if data[initFlagOffset] != InitFlag {
		img.rootInit()
		log.Debug("fresh image: ran root initialization")
	}
	return img, nil
}

// rootInit lays out the root directory. It is only ever run once per image,
// on the first open of a blank one.
func (img *Image) rootInit() {
	blockOffset, err := img.blockAlloc.Allocate()
	if err != nil || blockOffset != 0 {
		panic("image: root block must be allocation index 0 on a fresh image")
	}
	inodeOffset, err := img.inodeAlloc.Allocate()
	if err != nil || inodeOffset != 0 {
		panic("image: root inode must be allocation index 0 on a fresh image")
	}

	root := img.InodeByIndex(inodeOffset)
	root.SetMode(uint32(modebits.S_IFDIR | modebits.S_IRWXU | modebits.S_IRGRP |
		modebits.S_IXGRP | modebits.S_IROTH | modebits.S_IXOTH))
	root.SetLinks(1)
	root.SetSize(BlockSize)
	root.SetBlockCount(1)
	root.SetDBlock(0, blockOffset)
	root.SetIBlock(0)

	// An empty directory block is just a single zero-length-name record:
	// one NUL byte, written through a bytewriter over the block.
	w := bytewriter.New(img.BlockByIndex(blockOffset))
	w.Write([]byte{0})

	img.data[initFlagOffset] = InitFlag
}

// InodeByIndex returns a view onto the inode record at index i.
func (img *Image) InodeByIndex(i int) Inode {
	if i < 0 || i >= BitmapSize {
		panic(fmt.Sprintf("image: inode index %d out of range [0, %d)", i, BitmapSize))
	}
	off := inodeTableOffset + i*inodeSize
	return Inode{data: img.data[off : off+inodeSize]}
}

// BlockByIndex returns the raw bytes of block i in the block region.
func (img *Image) BlockByIndex(i int) []byte {
	if i < 0 || i >= BitmapSize {
		panic(fmt.Sprintf("image: block index %d out of range [0, %d)", i, BitmapSize))
	}
	off := blockRegionOffset + i*BlockSize
	return img.data[off : off+BlockSize]
}

// BlocksOf returns the logical-to-physical block address table for the
// inode at inodeIdx: its direct blocks when it has DirectBlockCount blocks
// or fewer, otherwise the first block_count bytes of its indirect block,
// which list every data block. It panics if an inode with more than
// DirectBlockCount blocks has indirect block index 0.
func (img *Image) BlocksOf(inodeIdx int) []int {
	inode := img.InodeByIndex(inodeIdx)
	count := int(inode.BlockCount())
	result := make([]int, count)

	if count <= DirectBlockCount {
		for i := 0; i < count; i++ {
			result[i] = int(inode.DBlock(i))
		}
		return result
	}

	if inode.IBlock() == 0 {
		panic(fmt.Sprintf("image: inode %d has %d blocks but indirect block index 0", inodeIdx, count))
	}
	ib := img.BlockByIndex(int(inode.IBlock()))
	for i := 0; i < count; i++ {
		result[i] = int(ib[i])
	}
	return result
}

// BlockAllocator returns the allocator managing the block bitmap.
func (img *Image) BlockAllocator() *bitmap.Allocator { return &img.blockAlloc }

// InodeAllocator returns the allocator managing the inode bitmap.
func (img *Image) InodeAllocator() *bitmap.Allocator { return &img.inodeAlloc }

// Sync flushes buffered changes back to the backing stream. Images backed
// by a real mmap have nothing to do here: writes through the mapping are
// already visible and durability is the OS's writeback problem. Images
// backed by an in-memory stream (tests) need an explicit write-back.
func (img *Image) Sync() error {
	if img.stream == nil {
		return nil
	}
	if _, err := img.stream.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := img.stream.Write(img.data)
	return err
}

// Close unmaps and closes the image.
func (img *Image) Close() error {
	if img.file != nil {
		if err := unix.Munmap(img.data); err != nil {
			return err
		}
		err := img.file.Close()
		img.log.Debug("image closed")
		return err
	}
	return img.Sync()
}
