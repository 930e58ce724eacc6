package pathutil_test

import (
	"testing"

	"github.com/go-nufs/nufs/pathutil"
	"github.com/stretchr/testify/assert"
)

func TestDelimit(t *testing.T) {
	assert.Equal(t, []string{"dir", "file.txt"}, pathutil.Delimit("/dir/file.txt"))
	assert.Nil(t, pathutil.Delimit("/"))
	assert.Equal(t, []string{"a"}, pathutil.Delimit("/a"))
}

func TestParentOf(t *testing.T) {
	assert.Equal(t, "", pathutil.ParentOf("/a"))
	assert.Equal(t, "/a", pathutil.ParentOf("/a/b"))
	assert.Equal(t, "/a", pathutil.ParentOf("/a/b/"))
}

func TestLeaf(t *testing.T) {
	assert.Equal(t, "a", pathutil.Leaf("/a"))
	assert.Equal(t, "b", pathutil.Leaf("/a/b"))
}
