package hdi

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// UniqueFd owns a file descriptor and closes it exactly once.
// A nil *UniqueFd behaves as an invalid descriptor.
type UniqueFd struct {
	fd int
}

// AdoptFd takes ownership of fd. Negative values yield an invalid UniqueFd.
func AdoptFd(fd int) *UniqueFd {
	if fd < 0 {
		fd = -1
	}
	return &UniqueFd{fd: fd}
}

// DupFd duplicates fd with close-on-exec. The caller owns the result.
func DupFd(fd int) (int, error) {
	if fd < 0 {
		return -1, fmt.Errorf("dup %d: %w", fd, ErrFd)
	}
	nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("dup %d: %v: %w", fd, err, ErrFd)
	}
	return nfd, nil
}

// DupUniqueFd returns an owned duplicate of fd, or an invalid UniqueFd
// when fd is negative.
func DupUniqueFd(fd int) (*UniqueFd, error) {
	if fd < 0 {
		return AdoptFd(-1), nil
	}
	nfd, err := DupFd(fd)
	if err != nil {
		return nil, err
	}
	return AdoptFd(nfd), nil
}

func (u *UniqueFd) Fd() int {
	if u == nil {
		return -1
	}
	return u.fd
}

func (u *UniqueFd) Valid() bool {
	return u.Fd() >= 0
}

// Dup returns a duplicate owned by the caller, -1 when u is invalid.
func (u *UniqueFd) Dup() (int, error) {
	if !u.Valid() {
		return -1, nil
	}
	return DupFd(u.fd)
}

// Release gives up ownership and returns the descriptor.
func (u *UniqueFd) Release() int {
	if u == nil {
		return -1
	}
	fd := u.fd
	u.fd = -1
	return fd
}

// Reset closes the current descriptor and adopts fd.
func (u *UniqueFd) Reset(fd int) error {
	err := u.Close()
	if fd < 0 {
		fd = -1
	}
	u.fd = fd
	return err
}

func (u *UniqueFd) Close() error {
	if !u.Valid() {
		return nil
	}
	fd := u.fd
	u.fd = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close %d: %w", fd, err)
	}
	return nil
}
