package ir

import "fmt"

// Error codes for contract violations the engine treats as malformed
// input: programmer contract violations, not recoverable analysis
// conditions, and reported loudly.
const (
	ErrorMissingFuncDecl  = "E-CG-001"
	ErrorMissingEntry     = "E-CG-002"
	ErrorDuplicateCFGNode = "E-CG-003"
)

// ContractError signals that the caller violated the engine's data-model
// contract (e.g. a call-graph node with no FuncDecl). It is never used for
// recoverable conditions like a missing summary or an unknown callee, which
// have their own sound fallbacks.
type ContractError struct {
	Code    string
	Message string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newContractError(code, format string, args ...interface{}) *ContractError {
	return &ContractError{Code: code, Message: fmt.Sprintf(format, args...)}
}
