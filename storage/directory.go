package storage

// A directory block is a sequence of variable-length records of the form
// <name bytes> 0x00 <inode index: 1 byte>, immediately followed by another
// record or by a zero-length name that terminates the block. Adding a
// record always leaves that terminator NUL in place right after the new
// entry.

type dirRecord struct {
	Name      string
	InodeIdx  int
	Offset    int
	RecordLen int // bytes occupied by name + NUL + inode index
}

// walkDirBlock returns every record in block, in storage order, stopping at
// the first zero-length name (the block terminator).
func walkDirBlock(block []byte) []dirRecord {
	var recs []dirRecord
	off := 0
	for off < len(block) {
		nameEnd := indexZero(block[off:])
		if nameEnd <= 0 {
			break
		}
		name := string(block[off : off+nameEnd])
		inodeIdx := int(block[off+nameEnd+1])
		recs = append(recs, dirRecord{
			Name:      name,
			InodeIdx:  inodeIdx,
			Offset:    off,
			RecordLen: nameEnd + 2,
		})
		off += nameEnd + 2
	}
	return recs
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// endOfRecords returns the offset of the block terminator, i.e. the offset
// one past the last stored record.
func endOfRecords(recs []dirRecord) int {
	if len(recs) == 0 {
		return 0
	}
	last := recs[len(recs)-1]
	return last.Offset + last.RecordLen
}
