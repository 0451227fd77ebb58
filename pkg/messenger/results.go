package messenger

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/kart-io/easysms/pkg/errors"
	"github.com/kart-io/easysms/pkg/gateway"
)

// Status of one gateway attempt
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the result of one gateway attempt: either the provider payload
// or the gateway error, never both.
type Outcome struct {
	result gateway.Result
	err    *gateway.Error
}

// Ok wraps a successful provider payload
func Ok(result gateway.Result) Outcome {
	if result == nil {
		result = gateway.Result{}
	}
	return Outcome{result: result}
}

// Err wraps a gateway failure
func Err(err *gateway.Error) Outcome {
	return Outcome{err: err}
}

// IsOk reports whether the attempt succeeded
func (o Outcome) IsOk() bool {
	return o.err == nil
}

// Status returns success or failure
func (o Outcome) Status() Status {
	if o.IsOk() {
		return StatusSuccess
	}
	return StatusFailure
}

// Result returns the provider payload; nil on failure
func (o Outcome) Result() gateway.Result {
	return o.result
}

// Err returns the gateway error; nil on success
func (o Outcome) Err() *gateway.Error {
	return o.err
}

// MarshalJSON renders {"status":"success","result":{...}} or
// {"status":"failure","error":{...}}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.IsOk() {
		return json.Marshal(struct {
			Status Status         `json:"status"`
			Result gateway.Result `json:"result"`
		}{StatusSuccess, o.result})
	}
	return json.Marshal(struct {
		Status Status         `json:"status"`
		Error  *gateway.Error `json:"error"`
	}{StatusFailure, o.err})
}

// Results maps each attempted gateway to its Outcome in dispatch order.
// There is exactly one entry per attempted gateway.
type Results struct {
	dispatchID string
	names      []string
	outcomes   map[string]Outcome
}

func newResults(dispatchID string, capacity int) *Results {
	return &Results{
		dispatchID: dispatchID,
		names:      make([]string, 0, capacity),
		outcomes:   make(map[string]Outcome, capacity),
	}
}

func (r *Results) add(name string, o Outcome) {
	if _, exists := r.outcomes[name]; !exists {
		r.names = append(r.names, name)
	}
	r.outcomes[name] = o
}

// DispatchID identifies the send that produced these results
func (r *Results) DispatchID() string {
	return r.dispatchID
}

// Get returns the outcome recorded for a gateway
func (r *Results) Get(name string) (Outcome, bool) {
	o, ok := r.outcomes[name]
	return o, ok
}

// Names returns the attempted gateways in dispatch order
func (r *Results) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of attempted gateways
func (r *Results) Len() int {
	return len(r.names)
}

// Succeeded returns the gateways that succeeded, in dispatch order
func (r *Results) Succeeded() []string {
	var out []string
	for _, name := range r.names {
		if r.outcomes[name].IsOk() {
			out = append(out, name)
		}
	}
	return out
}

// AnySucceeded reports whether at least one gateway succeeded
func (r *Results) AnySucceeded() bool {
	return len(r.Succeeded()) > 0
}

// AllFailed reports whether gateways were attempted and none succeeded
func (r *Results) AllFailed() bool {
	return r.Len() > 0 && !r.AnySucceeded()
}

// Escalate returns a *NoGatewayAvailableError when nothing succeeded,
// including when nothing was attempted. Otherwise it returns nil.
func (r *Results) Escalate() error {
	if r.AnySucceeded() {
		return nil
	}
	return &NoGatewayAvailableError{results: r}
}

// MarshalJSON renders the results as an object keyed by gateway, in order.
func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.outcomes[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NoGatewayAvailableError reports that no attempted gateway succeeded. It
// carries the full results for diagnostics and matches
// errors.NoGatewayAvailable with errors.Is.
type NoGatewayAvailableError struct {
	results *Results
}

// Error implements the error interface
func (e *NoGatewayAvailableError) Error() string {
	if e.results.Len() == 0 {
		return string(errors.ErrNoGatewayAvailable) + ": no gateway attempted"
	}
	parts := make([]string, 0, e.results.Len())
	for _, gwErr := range e.Errors() {
		parts = append(parts, gwErr.Error())
	}
	return string(errors.ErrNoGatewayAvailable) + ": all gateways failed: " + strings.Join(parts, "; ")
}

// Is matches the NO_GATEWAY_AVAILABLE code
func (e *NoGatewayAvailableError) Is(target error) bool {
	t, ok := target.(*errors.Error)
	return ok && t.Code == errors.ErrNoGatewayAvailable
}

// Unwrap exposes the per-gateway errors to errors.As
func (e *NoGatewayAvailableError) Unwrap() []error {
	errs := e.Errors()
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		out = append(out, err)
	}
	return out
}

// Results returns the full per-gateway results
func (e *NoGatewayAvailableError) Results() *Results {
	return e.results
}

// Errors returns the gateway errors in dispatch order
func (e *NoGatewayAvailableError) Errors() []*gateway.Error {
	var out []*gateway.Error
	for _, name := range e.results.names {
		if err := e.results.outcomes[name].Err(); err != nil {
			out = append(out, err)
		}
	}
	return out
}

// ErrorOf returns the error recorded for a gateway
func (e *NoGatewayAvailableError) ErrorOf(name string) *gateway.Error {
	return e.results.outcomes[name].Err()
}

// LastError returns the error of the last attempted gateway, or nil
func (e *NoGatewayAvailableError) LastError() *gateway.Error {
	errs := e.Errors()
	if len(errs) == 0 {
		return nil
	}
	return errs[len(errs)-1]
}
