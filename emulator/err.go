package emulator

import (
	"errors"
	"strconv"

	"github.com/ezrec/scsa/translate"
)

var f = translate.From

var (
	ErrNotBooted = errors.New(f("machine not booted"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Pc     uint16
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("pc 0x%04X %v", err.Pc, err.Err)
	}
	return f("line %v %v", strconv.Itoa(err.LineNo), err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrCycleLimit reports a program stopped by the cycle bound.
type ErrCycleLimit int

func (ec ErrCycleLimit) Error() string {
	return f("cycle limit %v reached", strconv.Itoa(int(ec)))
}
