package hdi

import "errors"

// ErrCode is the numeric result of a display operation.
type ErrCode int32

const (
	DispSuccess    ErrCode = 0
	DispFailure    ErrCode = -1
	DispFdErr      ErrCode = -2
	DispParamErr   ErrCode = -3
	DispNullPtr    ErrCode = -4
	DispNotSupport ErrCode = -5
	DispNoMem      ErrCode = -6
	DispSysBusy    ErrCode = -7
	DispNotPerm    ErrCode = -8
)

type codeError struct {
	code ErrCode
	msg  string
}

func (e *codeError) Error() string {
	return e.msg
}

var (
	ErrFailure      error = &codeError{DispFailure, "display: failure"}
	ErrFd           error = &codeError{DispFdErr, "display: bad file descriptor"}
	ErrParam        error = &codeError{DispParamErr, "display: invalid parameter"}
	ErrNullPtr      error = &codeError{DispNullPtr, "display: null argument"}
	ErrNotSupported error = &codeError{DispNotSupport, "display: not supported"}
	ErrNoMem        error = &codeError{DispNoMem, "display: out of memory"}
	ErrBusy         error = &codeError{DispSysBusy, "display: busy"}
	ErrNotPerm      error = &codeError{DispNotPerm, "display: not permitted"}
)

// Code maps err to its result code. Errors that don't wrap one of the
// sentinels above are failures.
func Code(err error) ErrCode {
	if err == nil {
		return DispSuccess
	}
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code
	}
	return DispFailure
}
