// Package bitmap provides the MSB-first bit-array primitives the image
// layer's inode and block allocators are built on, plus an Allocator type
// that wraps those primitives the way the allocation maps in a disk driver
// normally do.
//
// The bit order here is load-bearing, not a style choice: bit 0 of a bitmap
// is the high bit of byte 0. Any implementation that packs bits the other
// way produces images that are byte-incompatible with this one.
package bitmap

import (
	"fmt"

	"github.com/go-nufs/nufs/nferrors"
)

const msbHigh = 0x80

// ByteLen returns the number of bytes needed to hold size bits.
func ByteLen(size int) int {
	return (size + 7) / 8
}

// Get reports whether bit index is set in bm.
func Get(bm []byte, index int) bool {
	return bm[index/8]&(msbHigh>>(uint(index)%8)) != 0
}

// Set sets or clears bit index in bm.
func Set(bm []byte, index int, value bool) {
	mask := byte(msbHigh >> (uint(index) % 8))
	if value {
		bm[index/8] |= mask
	} else {
		bm[index/8] &^= mask
	}
}

// FindFirstClear scans bm for the first clear bit among the first size bits
// and returns its index, or an EDQUOT DriverError if every bit is set.
func FindFirstClear(bm []byte, size int) (int, error) {
	for i := 0; i < size; i++ {
		if !Get(bm, i) {
			return i, nil
		}
	}
	return 0, nferrors.New(nferrors.EDQUOT)
}

// PopCount returns the number of set bits among the first size bits of bm.
func PopCount(bm []byte, size int) int {
	count := 0
	for i := 0; i < size; i++ {
		if Get(bm, i) {
			count++
		}
	}
	return count
}

// Allocator is a first-fit bitmap allocator over a fixed-size bit array. The
// bits it manages are expected to live directly inside a memory-mapped
// image: allocating or freeing an index mutates Bits in place, with no
// separate flush step.
type Allocator struct {
	Bits []byte
	Size int
}

// NewAllocator wraps bits (a byte slice at least ByteLen(size) long) as an
// allocator managing size units.
func NewAllocator(bits []byte, size int) Allocator {
	return Allocator{Bits: bits, Size: size}
}

// Allocate finds the first free unit, marks it used, and returns its index.
func (a *Allocator) Allocate() (int, error) {
	idx, err := FindFirstClear(a.Bits, a.Size)
	if err != nil {
		return 0, err
	}
	Set(a.Bits, idx, true)
	return idx, nil
}

// Free marks index as unused. Freeing an index that is already free, or one
// outside [0, Size), is an error.
func (a *Allocator) Free(index int) error {
	if index < 0 || index >= a.Size {
		msg := fmt.Sprintf("invalid index: %d not in range [0, %d)", index, a.Size)
		return nferrors.NewWithMessage(nferrors.EINVAL, msg)
	}
	if !Get(a.Bits, index) {
		msg := fmt.Sprintf("unit %d is already free", index)
		return nferrors.NewWithMessage(nferrors.EALREADY, msg)
	}
	Set(a.Bits, index, false)
	return nil
}

// IsAllocated reports whether index is currently marked used.
func (a *Allocator) IsAllocated(index int) bool {
	return Get(a.Bits, index)
}

// PopCount returns the number of currently allocated units.
func (a *Allocator) PopCount() int {
	return PopCount(a.Bits, a.Size)
}
