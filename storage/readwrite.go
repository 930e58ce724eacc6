package storage

import "github.com/go-nufs/nufs/image"

// Read reads up to len(buf) bytes from path starting at offset, clamped to
// the file's size, and returns the number of bytes actually read. An offset
// at or past the end of the file reads zero bytes rather than erroring:
// the original implementation's unclamped length calculation could
// underflow here, handing back a read request far larger than the file
// actually holds.
func (e *Engine) Read(path string, buf []byte, offset int64) (int, error) {
	idx, err := e.Access(path)
	if err != nil {
		return 0, err
	}
	inode := e.img.InodeByIndex(idx)

	if offset >= int64(inode.Size()) {
		return 0, nil
	}

	length := len(buf)
	if offset+int64(length) > int64(inode.Size()) {
		length = int(int64(inode.Size()) - offset)
	}

	blocks := e.img.BlocksOf(idx)
	blockPos := int(offset / image.BlockSize)
	intra := int(offset % image.BlockSize)

	read := 0
	for read < length {
		block := e.img.BlockByIndex(blocks[blockPos])
		n := image.BlockSize - intra
		if n > length-read {
			n = length - read
		}
		copy(buf[read:read+n], block[intra:intra+n])
		read += n
		intra = 0
		blockPos++
	}

	ts := now()
	inode.SetATime(ts)
	return read, nil
}

// Write writes buf to path starting at offset, growing the file (via
// Truncate) first if the write extends past the current size. No bytes are
// written if the growth fails.
func (e *Engine) Write(path string, buf []byte, offset int64) (int, error) {
	idx, err := e.Access(path)
	if err != nil {
		return 0, err
	}
	inode := e.img.InodeByIndex(idx)

	if offset+int64(len(buf)) > int64(inode.Size()) {
		if err := e.Truncate(uint32(offset+int64(len(buf))), idx); err != nil {
			return 0, err
		}
	}

	blocks := e.img.BlocksOf(idx)
	blockPos := int(offset / image.BlockSize)
	intra := int(offset % image.BlockSize)

	written := 0
	for written < len(buf) {
		block := e.img.BlockByIndex(blocks[blockPos])
		n := image.BlockSize - intra
		if n > len(buf)-written {
			n = len(buf) - written
		}
		copy(block[intra:intra+n], buf[written:written+n])
		written += n
		intra = 0
		blockPos++
	}

	ts := now()
	inode.SetMTime(ts)
	return written, nil
}
