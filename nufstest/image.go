// Package nufstest provides throwaway filesystem images and invariant
// checking for tests elsewhere in the module.
package nufstest

import (
	"github.com/go-nufs/nufs/image"
	"github.com/sirupsen/logrus"
	"github.com/xaionaro-go/bytesextra"
)

// NewMemoryImage returns a freshly root-initialized image backed entirely by
// memory: no file ever touches disk. Suitable for one test each since state
// is not shared between calls.
func NewMemoryImage() (*image.Image, error) {
	buf := make([]byte, image.DiskSpace)
	rws := bytesextra.NewReadWriteSeeker(buf)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	return image.NewFromStream(rws, logrus.NewEntry(log))
}
