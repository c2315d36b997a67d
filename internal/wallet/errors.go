package wallet

import (
	"errors"
	"strings"
)

// ExecErrorCode is the structured error contract between the execution
// layer and the swap orchestrator. Classifying expiry by substring-matching
// wallet error messages is fragile; callers should rely on the code and
// keep the message heuristic only as a fallback for foreign errors.
type ExecErrorCode string

const (
	// ErrCodeRejected is a signing rejection (user or signer refused).
	ErrCodeRejected ExecErrorCode = "rejected"
	// ErrCodeBroadcast is a sendTransaction transport or RPC failure.
	ErrCodeBroadcast ExecErrorCode = "broadcast"
	// ErrCodeExpired means the transaction's blockhash aged out before
	// the signature reached the requested commitment.
	ErrCodeExpired ExecErrorCode = "expired"
	// ErrCodeFailed is an on-chain execution failure.
	ErrCodeFailed ExecErrorCode = "failed"
	// ErrCodeConfirmation covers confirmation polling errors.
	ErrCodeConfirmation ExecErrorCode = "confirmation"
)

// ExecError carries the structured code alongside the underlying error.
type ExecError struct {
	Code ExecErrorCode
	Err  error
}

func (e *ExecError) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Err.Error()
}

func (e *ExecError) Unwrap() error { return e.Err }

func execErr(code ExecErrorCode, err error) *ExecError {
	return &ExecError{Code: code, Err: err}
}

// IsExpiry reports whether an execution error means blockhash/transaction
// expiry. The structured code wins; the substring check covers errors that
// did not come through this package.
func IsExpiry(err error) bool {
	if err == nil {
		return false
	}
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeExpired
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "expired") ||
		strings.Contains(msg, "block height exceeded") ||
		strings.Contains(msg, "blockhash not found")
}
