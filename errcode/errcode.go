package errcode

// Code is a stable, protocol-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Bus transaction protocol.
	Busy          Code = "busy"           // transaction already open
	Unsupported   Code = "unsupported"    // e.g. async write start
	Nack          Code = "nack"           // upstream transfer failure
	DirMismatch   Code = "dir_mismatch"   // byte moved against transaction direction
	NotAddressed  Code = "not_addressed"  // data phase before address phase completed
	AddrRange     Code = "addr_range"     // register address outside the register file
	UnknownTarget Code = "unknown_target" // no target attached at the bus address

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
