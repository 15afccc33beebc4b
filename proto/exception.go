package proto

import "fmt"

// Exception is the five-field exception record the server sends on the
// Exception packet. It may chain via Nested, mirroring the
// server's own cause chain.
type Exception struct {
	Code           int32
	Name           string
	Message        string
	ServerStackTrace string
	Nested         *Exception
}

// Error implements the error interface, surfacing the server's own
// exception text verbatim when available.
func (e *Exception) Error() string {
	if e == nil {
		return "<nil exception>"
	}
	msg := fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
	if e.Nested != nil {
		msg += ". " + e.Nested.Error()
	}
	return msg
}

// ReadException decodes one exception record, recursing through
// has-nested chains:
// i32LE code, string name, string message, string server_stack, u8 has_nested.
func ReadException(r *BufferReader) (*Exception, error) {
	code, err := r.ReadI32LE()
	if err != nil {
		return nil, err
	}
	name, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	message, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	stack, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	hasNested, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	exc := &Exception{Code: code, Name: name, Message: message, ServerStackTrace: stack}
	if hasNested != 0 {
		nested, err := ReadException(r)
		if err != nil {
			return nil, err
		}
		exc.Nested = nested
	}
	return exc, nil
}

// WriteException encodes e for round-trip tests and for any interserver
// forwarding scenario; the wire only ever needs the client to read this
// record, but a symmetric writer keeps the codec testable without a live
// server.
func WriteException(w *BufferWriter, e *Exception) {
	w.WriteI32LE(e.Code)
	w.WriteString(e.Name)
	w.WriteString(e.Message)
	w.WriteString(e.ServerStackTrace)
	if e.Nested != nil {
		w.WriteByte(1)
		WriteException(w, e.Nested)
	} else {
		w.WriteByte(0)
	}
}
