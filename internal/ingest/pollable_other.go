//go:build !unix

package ingest

import "os"

func pollableFile(*os.File) (dup *os.File, restore func(), ok bool) {
	return nil, nil, false
}
