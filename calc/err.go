package calc

import (
	"errors"

	"github.com/ezrec/scsa/translate"
)

var f = translate.From

var (
	ErrExpressionSyntax = errors.New(f("expected 'A OP B' or 'NOT A'"))
	ErrOperandInvalid   = errors.New(f("operands must be 0 or 1"))
	ErrNoResult         = errors.New(f("program did not halt"))
)

// ErrOperation is an unsupported calculator operation.
type ErrOperation string

func (err ErrOperation) Error() string {
	return f("unsupported operation %v", string(err))
}
