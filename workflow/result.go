package workflow

import "encoding/json"

const (
	ResultStatusOk  = "ok"
	ResultStatusErr = "err"
)

// Well-known procedure error codes. Clients branch on the code, the message
// is for humans.
const (
	ErrCodeValidation     = "validation"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInsufficient   = "insufficient_stock"
	ErrCodeReconciliation = "reconciliation_error"
	ErrCodeInProgress     = "in_progress"
	ErrCodeInternal       = "internal"
)

type ProcedureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ProcedureError) Error() string {
	return e.Message
}

func NewProcedureError(code, message string) *ProcedureError {
	return &ProcedureError{Code: code, Message: message}
}

// Result is the tagged envelope every allocation procedure returns. Exactly
// one of Data and Error is set.
type Result struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *ProcedureError `json:"error,omitempty"`
}

func (r Result) IsOk() bool {
	return r.Status == ResultStatusOk
}

func Ok(data interface{}) Result {
	raw, err := json.Marshal(data)
	if err != nil {
		return Err(ErrCodeInternal, "failed to encode result: "+err.Error())
	}
	return Result{Status: ResultStatusOk, Data: raw}
}

func Err(code, message string) Result {
	return Result{Status: ResultStatusErr, Error: &ProcedureError{Code: code, Message: message}}
}

// ErrFrom maps an operation error onto the envelope, keeping the code when
// the error already carries one.
func ErrFrom(err error) Result {
	if err == nil {
		return Err(ErrCodeInternal, "unknown error")
	}
	if pe, ok := err.(*ProcedureError); ok {
		return Result{Status: ResultStatusErr, Error: pe}
	}
	return Err(ErrCodeInternal, err.Error())
}
