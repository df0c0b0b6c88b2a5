//go:build unix

package rtc

import (
	"os"

	"golang.org/x/sys/unix"
)

// acquireLock takes an exclusive advisory lock on the cache lock file.
// Contenders may be separate processes sharing the cache directory; the
// in-process mutex alone is not enough.
func acquireLock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func releaseLock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
