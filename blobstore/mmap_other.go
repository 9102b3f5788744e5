//go:build !unix

package blobstore

import (
	"errors"
	"os"
)

var errNoMmap = errors.New("blobstore: mmap not supported")

func mapFile(*os.File, int64) ([]byte, func() error, error) {
	return nil, nil, errNoMmap
}
