//go:build unix

package ingest

import (
	"os"
	"syscall"
)

// pollableFile returns a non-blocking duplicate of a pipe or terminal so a
// pending read is woken by Close. restore puts the shared file description
// back into blocking mode once reading is over.
func pollableFile(f *os.File) (dup *os.File, restore func(), ok bool) {
	info, err := f.Stat()
	if err != nil || info.Mode()&(os.ModeNamedPipe|os.ModeCharDevice) == 0 {
		return nil, nil, false
	}

	rc, err := f.SyscallConn()
	if err != nil {
		return nil, nil, false
	}
	fd := -1
	var dupErr error
	if err := rc.Control(func(orig uintptr) {
		fd, dupErr = syscall.Dup(int(orig))
	}); err != nil || dupErr != nil {
		return nil, nil, false
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		_ = syscall.Close(fd)
		return nil, nil, false
	}

	restore = func() {
		_ = rc.Control(func(orig uintptr) {
			_ = syscall.SetNonblock(int(orig), false)
		})
	}
	return os.NewFile(uintptr(fd), f.Name()), restore, true
}
