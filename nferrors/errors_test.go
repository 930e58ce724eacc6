package nferrors_test

import (
	"syscall"
	"testing"

	"github.com/go-nufs/nufs/nferrors"
	"github.com/stretchr/testify/assert"
)

func TestNewWithMessage(t *testing.T) {
	err := nferrors.NewWithMessage(nferrors.ENOENT, "/missing/file")
	assert.Equal(t, "no such file or directory: /missing/file", err.Error())
	assert.ErrorIs(t, err, syscall.ENOENT)
}

func TestNew(t *testing.T) {
	err := nferrors.New(nferrors.EDQUOT)
	assert.Equal(t, syscall.EDQUOT.Error(), err.Error())
}

func TestNegated(t *testing.T) {
	err := nferrors.New(nferrors.ENOENT)
	assert.EqualValues(t, -int(syscall.ENOENT), err.Negated())
}

func TestAsErrno(t *testing.T) {
	assert.EqualValues(t, 0, nferrors.AsErrno(nil))
	assert.EqualValues(t, -int(syscall.ENOTDIR), nferrors.AsErrno(nferrors.New(nferrors.ENOTDIR)))
}
