//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/vidpage/vidpage/internal/errors"
)

// openFileNoFollow opens a file for writing with O_NOFOLLOW on the final
// path component. O_CLOEXEC keeps the FD out of exec'd children (ffmpeg).
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewValidation("cannot write to symlink")
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
