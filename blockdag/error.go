package blockdag

import "fmt"

// ErrorCode identifies a kind of block rule violation.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateBlock indicates a block with the same low hash already
	// exists in the store.
	ErrDuplicateBlock ErrorCode = iota

	// ErrInvalidBlockSize indicates the serialized block is not exactly
	// BlockSize bytes.
	ErrInvalidBlockSize

	// ErrInvalidComposition indicates the type word does not describe a
	// legal field composition.
	ErrInvalidComposition

	// ErrTimestampTooNew indicates the block timestamp is further in the
	// future than the admission policy allows.
	ErrTimestampTooNew

	// ErrTimestampOrder indicates a link references a block whose
	// timestamp does not strictly precede the referrer's.
	ErrTimestampOrder

	// ErrBadSignature indicates an input is not authorized by any key the
	// linked block declares, or a self-binding signature fails.
	ErrBadSignature

	// ErrAmountOverflow indicates summing the block's link amounts
	// overflowed.
	ErrAmountOverflow

	// ErrOutputsExceedInputs indicates the declared outputs exceed the
	// spent inputs.
	ErrOutputsExceedInputs

	// ErrInsufficientFunds indicates an input tried to spend more than
	// the linked block's balance.
	ErrInsufficientFunds

	// ErrOrphanPoolFull indicates the orphan pool refused a block.
	ErrOrphanPoolFull
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:      "ErrDuplicateBlock",
	ErrInvalidBlockSize:    "ErrInvalidBlockSize",
	ErrInvalidComposition:  "ErrInvalidComposition",
	ErrTimestampTooNew:     "ErrTimestampTooNew",
	ErrTimestampOrder:      "ErrTimestampOrder",
	ErrBadSignature:        "ErrBadSignature",
	ErrAmountOverflow:      "ErrAmountOverflow",
	ErrOutputsExceedInputs: "ErrOutputsExceedInputs",
	ErrInsufficientFunds:   "ErrInsufficientFunds",
	ErrOrphanPoolFull:      "ErrOrphanPoolFull",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block failed due to one of the many validation rules.
// The caller can use type assertion to detect a rule violation and access
// the ErrorCode to distinguish a rejected block from an internal failure.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, format string, args ...interface{}) RuleError {
	return RuleError{ErrorCode: c, Description: fmt.Sprintf(format, args...)}
}

// IsRuleError returns whether err is a RuleError, optionally of a specific
// code.
func IsRuleError(err error, codes ...ErrorCode) bool {
	ruleErr, ok := err.(RuleError)
	if !ok {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, code := range codes {
		if ruleErr.ErrorCode == code {
			return true
		}
	}
	return false
}

// ReorgError wraps an invariant violation found while reverting or
// replaying a main-chain segment. It is never recovered: the node dumps
// diagnostics and exits.
type ReorgError struct {
	Description string
}

// Error satisfies the error interface.
func (e ReorgError) Error() string {
	return e.Description
}

// reorgError creates a ReorgError given a set of arguments.
func reorgError(format string, args ...interface{}) ReorgError {
	return ReorgError{Description: fmt.Sprintf(format, args...)}
}

// IsReorgError returns whether err is a ReorgError.
func IsReorgError(err error) bool {
	_, ok := err.(ReorgError)
	return ok
}
