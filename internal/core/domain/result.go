package domain

import "fmt"

type ResultKind string

const (
	ResultOK    ResultKind = "ok"
	ResultNoop  ResultKind = "noop"
	ResultError ResultKind = "error"
)

// ActionResult is the outcome of an inverter or scheduling operation. Expected
// failures are carried in ResponseError instead of being returned as a Go
// error so the caller can always log and publish the outcome.
type ActionResult struct {
	Kind          ResultKind `json:"kind"`
	Status        string     `json:"status"`
	ResponseError error      `json:"-"`
}

func (r ActionResult) GetResponseError() error {
	return r.ResponseError
}

func (r ActionResult) HasResponseError() bool {
	return r.ResponseError != nil
}

// Message returns the status text or, for failures, the error text.
func (r ActionResult) Message() string {
	if r.ResponseError != nil {
		return r.ResponseError.Error()
	}
	return r.Status
}

func OK(format string, args ...any) ActionResult {
	return ActionResult{Kind: ResultOK, Status: fmt.Sprintf(format, args...)}
}

func Noop(format string, args ...any) ActionResult {
	return ActionResult{Kind: ResultNoop, Status: fmt.Sprintf(format, args...)}
}

func Failure(err error) ActionResult {
	return ActionResult{Kind: ResultError, Status: "error", ResponseError: err}
}
