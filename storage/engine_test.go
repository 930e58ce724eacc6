package storage_test

import (
	"testing"
	"time"

	"github.com/go-nufs/nufs/image"
	"github.com/go-nufs/nufs/modebits"
	"github.com/go-nufs/nufs/nferrors"
	"github.com/go-nufs/nufs/nufstest"
	"github.com/go-nufs/nufs/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *storage.Engine {
	t.Helper()
	img, err := nufstest.NewMemoryImage()
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })
	return storage.New(img)
}

func TestAccessRoot(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Access("/")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestAccessMissing(t *testing.T) {
	e := newEngine(t)
	_, err := e.Access("/nope")
	assert.ErrorIs(t, err, nferrors.ENOENT)
}

func TestMknodAndAccess(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/hello.txt", uint32(modebits.S_IFREG|modebits.S_IRUSR|modebits.S_IWUSR))
	require.NoError(t, err)

	found, err := e.Access("/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, idx, found)

	inode := e.GetAttr(idx)
	assert.True(t, inode.IsRegular())
	assert.EqualValues(t, 1, inode.Links())
	assert.EqualValues(t, 0, inode.Size())

	require.NoError(t, nufstest.CheckInvariants(e.Image()))
}

func TestMkdirNestedFile(t *testing.T) {
	e := newEngine(t)
	_, err := e.Mkdir("/sub", uint32(modebits.S_IRWXU))
	require.NoError(t, err)

	_, err = e.Mknod("/sub/file.txt", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	idx, err := e.Access("/sub/file.txt")
	require.NoError(t, err)
	assert.True(t, e.GetAttr(idx).IsRegular())

	require.NoError(t, nufstest.CheckInvariants(e.Image()))
}

func TestWriteReadRoundTrip(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/data.bin", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	payload := []byte("hello, filesystem")
	n, err := e.Write("/data.bin", payload, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	inode := e.GetAttr(idx)
	assert.EqualValues(t, len(payload), inode.Size())

	buf := make([]byte, len(payload))
	n, err = e.Read("/data.bin", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf)
}

func TestReadPastEOFReturnsZero(t *testing.T) {
	e := newEngine(t)
	_, err := e.Mknod("/empty.bin", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := e.Read("/empty.bin", buf, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWriteAcrossBlockBoundary(t *testing.T) {
	e := newEngine(t)
	_, err := e.Mknod("/big.bin", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	payload := make([]byte, image.BlockSize+100)
	for i := range payload {
		payload[i] = byte(i)
	}
	n, err := e.Write("/big.bin", payload, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	n, err = e.Read("/big.bin", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf)

	require.NoError(t, nufstest.CheckInvariants(e.Image()))
}

func TestTruncateGrowPromotesToIndirect(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/grow.bin", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	newSize := uint32((image.DirectBlockCount + 2) * image.BlockSize)
	require.NoError(t, e.Truncate(newSize, idx))

	inode := e.GetAttr(idx)
	assert.EqualValues(t, image.DirectBlockCount+2, inode.BlockCount())
	assert.NotZero(t, inode.IBlock())

	require.NoError(t, nufstest.CheckInvariants(e.Image()))
}

func TestTruncateDirectoryReturnsEISDIR(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mkdir("/dir", uint32(modebits.S_IRWXU))
	require.NoError(t, err)

	err = e.Truncate(0, idx)
	assert.ErrorIs(t, err, nferrors.EISDIR)

	require.NoError(t, nufstest.CheckInvariants(e.Image()))
}

func TestTruncateWithoutOwnerWriteReturnsEACCES(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/ro.bin", uint32(modebits.S_IFREG|modebits.S_IRUSR))
	require.NoError(t, err)

	err = e.Truncate(image.BlockSize, idx)
	assert.ErrorIs(t, err, nferrors.EACCES)
}

func TestReadDirWithoutOwnerExecuteReturnsEACCES(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mkdir("/noexec", uint32(modebits.S_IRUSR|modebits.S_IWUSR))
	require.NoError(t, err)

	_, err = e.ReadDir(idx)
	assert.ErrorIs(t, err, nferrors.EACCES)
}

func TestTruncateShrinkDemotesFromIndirect(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/shrink.bin", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	require.NoError(t, e.Truncate(uint32((image.DirectBlockCount+2)*image.BlockSize), idx))
	require.NoError(t, e.Truncate(uint32(2*image.BlockSize), idx))

	inode := e.GetAttr(idx)
	assert.EqualValues(t, 2, inode.BlockCount())
	assert.EqualValues(t, 0, inode.IBlock())

	require.NoError(t, nufstest.CheckInvariants(e.Image()))
}

func TestLinkIncreasesLinkCount(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/orig.txt", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	require.NoError(t, e.Link("/orig.txt", "/alias.txt"))

	aliasIdx, err := e.Access("/alias.txt")
	require.NoError(t, err)
	assert.Equal(t, idx, aliasIdx)
	assert.EqualValues(t, 2, e.GetAttr(idx).Links())
}

func TestUnlinkFreesInodeAtZeroLinks(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/onlylink.txt", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	require.NoError(t, e.Unlink("/onlylink.txt"))
	_, err = e.Access("/onlylink.txt")
	assert.ErrorIs(t, err, nferrors.ENOENT)
	assert.False(t, e.Image().InodeAllocator().IsAllocated(idx))
}

func TestUnlinkKeepsInodeWithRemainingLinks(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/a.txt", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)
	require.NoError(t, e.Link("/a.txt", "/b.txt"))

	require.NoError(t, e.Unlink("/a.txt"))
	assert.True(t, e.Image().InodeAllocator().IsAllocated(idx))
	assert.EqualValues(t, 1, e.GetAttr(idx).Links())
}

func TestRmdirRefusesNonEmpty(t *testing.T) {
	e := newEngine(t)
	_, err := e.Mkdir("/dir", uint32(modebits.S_IRWXU))
	require.NoError(t, err)
	_, err = e.Mknod("/dir/child.txt", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	err = e.Rmdir("/dir")
	assert.ErrorIs(t, err, nferrors.ENOTEMPTY)
}

func TestRmdirRemovesEmpty(t *testing.T) {
	e := newEngine(t)
	_, err := e.Mkdir("/empty", uint32(modebits.S_IRWXU))
	require.NoError(t, err)

	require.NoError(t, e.Rmdir("/empty"))
	_, err = e.Access("/empty")
	assert.ErrorIs(t, err, nferrors.ENOENT)
}

func TestRenameMovesEntry(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/old.txt", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	require.NoError(t, e.Rename("/old.txt", "/new.txt"))

	_, err = e.Access("/old.txt")
	assert.ErrorIs(t, err, nferrors.ENOENT)

	newIdx, err := e.Access("/new.txt")
	require.NoError(t, err)
	assert.Equal(t, idx, newIdx)
}

func TestChmodPreservesType(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/f.txt", uint32(modebits.S_IFREG|modebits.S_IRUSR))
	require.NoError(t, err)

	require.NoError(t, e.Chmod("/f.txt", uint32(modebits.S_IRWXU)))
	inode := e.GetAttr(idx)
	assert.True(t, inode.IsRegular())
	assert.EqualValues(t, modebits.S_IRWXU, inode.Mode()&uint32(modebits.S_IRWXU|modebits.S_IRWXG|modebits.S_IRWXO))
}

func TestUtimensSetsTimes(t *testing.T) {
	e := newEngine(t)
	idx, err := e.Mknod("/t.txt", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	stamp := time.Unix(1_700_000_000, 0)
	require.NoError(t, e.Utimens("/t.txt", stamp, stamp))

	inode := e.GetAttr(idx)
	assert.EqualValues(t, stamp.Unix(), inode.ATime())
	assert.EqualValues(t, stamp.Unix(), inode.MTime())
}

func TestReadDirListsEntries(t *testing.T) {
	e := newEngine(t)
	_, err := e.Mknod("/one.txt", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)
	_, err = e.Mknod("/two.txt", uint32(modebits.S_IFREG|modebits.S_IRWXU))
	require.NoError(t, err)

	entries, err := e.ReadDir(0)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, ent := range entries {
		names[ent.Name] = true
	}
	assert.True(t, names["one.txt"])
	assert.True(t, names["two.txt"])
}

func TestDirectoryFullReturnsEDQUOT(t *testing.T) {
	e := newEngine(t)
	i := 0
	for {
		name := "/" + paddedName(i)
		_, err := e.Mknod(name, uint32(modebits.S_IFREG|modebits.S_IRWXU))
		if err != nil {
			assert.ErrorIs(t, err, nferrors.EDQUOT)
			break
		}
		i++
		if i > image.BitmapSize {
			t.Fatal("directory never ran out of space")
		}
	}
}

func paddedName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	// The padding makes each record 40 bytes, so the root's one directory
	// block fills after 102 entries, well before the 253 inodes run out.
	return string(letters[i%len(letters)]) + string(letters[(i/len(letters))%len(letters)]) +
		"-padding-to-fill-the-directory-block"
}
