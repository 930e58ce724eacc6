package image

import (
	"encoding/binary"

	"github.com/go-nufs/nufs/modebits"
)

// field offsets within one inode record
const (
	modeOff       = 0
	linksOff      = 4
	sizeOff       = 8
	blockCountOff = 12
	dBlocksOff    = 13
	iBlockOff     = 13 + DirectBlockCount
	aTimeOff      = iBlockOff + 1
	mTimeOff      = aTimeOff + 4
)

// Inode is a zero-copy view onto one inode record inside the image's mapped
// memory. Every setter mutates the backing bytes directly and is visible to
// every other holder of the same image immediately, the same way writing
// through a C struct pointer over mmap'd memory would be.
type Inode struct {
	data []byte
}

func (n Inode) Mode() uint32      { return binary.LittleEndian.Uint32(n.data[modeOff:]) }
func (n Inode) SetMode(v uint32)  { binary.LittleEndian.PutUint32(n.data[modeOff:], v) }
func (n Inode) Links() uint32     { return binary.LittleEndian.Uint32(n.data[linksOff:]) }
func (n Inode) SetLinks(v uint32) { binary.LittleEndian.PutUint32(n.data[linksOff:], v) }
func (n Inode) Size() uint32      { return binary.LittleEndian.Uint32(n.data[sizeOff:]) }
func (n Inode) SetSize(v uint32)  { binary.LittleEndian.PutUint32(n.data[sizeOff:], v) }

func (n Inode) BlockCount() uint8     { return n.data[blockCountOff] }
func (n Inode) SetBlockCount(v uint8) { n.data[blockCountOff] = v }

func (n Inode) DBlock(i int) uint8 { return n.data[dBlocksOff+i] }
func (n Inode) SetDBlock(i int, v int) {
	n.data[dBlocksOff+i] = byte(v)
}

func (n Inode) IBlock() uint8     { return n.data[iBlockOff] }
func (n Inode) SetIBlock(v uint8) { n.data[iBlockOff] = v }

func (n Inode) ATime() uint32     { return binary.LittleEndian.Uint32(n.data[aTimeOff:]) }
func (n Inode) SetATime(v uint32) { binary.LittleEndian.PutUint32(n.data[aTimeOff:], v) }
func (n Inode) MTime() uint32     { return binary.LittleEndian.Uint32(n.data[mTimeOff:]) }
func (n Inode) SetMTime(v uint32) { binary.LittleEndian.PutUint32(n.data[mTimeOff:], v) }

// IsDir reports whether the inode's type bits mark it as a directory.
func (n Inode) IsDir() bool { return modebits.IsDir(n.Mode()) }

// IsRegular reports whether the inode's type bits mark it as a regular file.
func (n Inode) IsRegular() bool { return modebits.IsRegular(n.Mode()) }
