package boot

import (
	"errors"

	"github.com/ezrec/scsa/translate"
)

var f = translate.From

var (
	// Integrity errors
	ErrImageEmpty      = errors.New(f("image is empty"))
	ErrImageOversize   = errors.New(f("image exceeds maximum size"))
	ErrSignature       = errors.New(f("invalid bootloader signature"))
	ErrImageIncomplete = errors.New(f("image read incomplete"))
)

// ErrImageOpen reports an image that could not be opened or read.
type ErrImageOpen struct {
	Name string
	Err  error
}

func (err *ErrImageOpen) Error() string {
	return f("image %v: %v", err.Name, err.Err)
}

func (err *ErrImageOpen) Unwrap() error {
	return err.Err
}

// ErrIntegrity reports an image rejected by validation.
type ErrIntegrity struct {
	Name string
	Err  error
}

func (err *ErrIntegrity) Error() string {
	return f("secure boot failure: %v: %v", err.Name, err.Err)
}

func (err *ErrIntegrity) Unwrap() error {
	return err.Err
}
