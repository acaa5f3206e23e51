package minidump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Exception is the decoded exception stream.
type Exception struct {
	Raw RawExceptionStream
}

// GetException decodes the exception stream. Dumps taken without a crash
// (on request, on assertion) have none.
func (md *Minidump) GetException() (*Exception, error) {
	data, err := md.streamData(ExceptionStream)
	if err != nil {
		return nil, err
	}
	e := &Exception{}
	if err := binary.Read(bytes.NewReader(data), md.order, &e.Raw); err != nil {
		return nil, md.streamErr(ExceptionStream, errors.Wrap(err, "exception record"))
	}
	return e, nil
}

// Print writes the exception record to w.
func (e *Exception) Print(w io.Writer) {
	r := e.Raw
	fmt.Fprintf(w, "MDRawExceptionStream\n")
	fmt.Fprintf(w, "  thread_id                 = 0x%x\n", r.ThreadID)
	fmt.Fprintf(w, "  exception_record.code     = 0x%x\n", r.Record.ExceptionCode)
	fmt.Fprintf(w, "  exception_record.flags    = 0x%x\n", r.Record.ExceptionFlags)
	fmt.Fprintf(w, "  exception_record.address  = 0x%x\n", r.Record.ExceptionAddress)
	n := r.Record.NumberParameters
	if n > uint32(len(r.Record.Information)) {
		n = uint32(len(r.Record.Information))
	}
	fmt.Fprintf(w, "  exception_record.number_parameters = %d\n", r.Record.NumberParameters)
	for i := uint32(0); i < n; i++ {
		fmt.Fprintf(w, "  exception_record.information[%d] = 0x%x\n", i, r.Record.Information[i])
	}
	fmt.Fprintf(w, "  thread_context.data_size  = %d\n", r.ThreadContext.DataSize)
	fmt.Fprintf(w, "  thread_context.rva        = 0x%x\n", r.ThreadContext.RVA)
	fmt.Fprintf(w, "\n")
}

// Assertion is the decoded Breakpad assertion stream.
type Assertion struct {
	Expression string
	Function   string
	File       string
	Line       uint32
	Type       uint32
}

// GetAssertion decodes the assertion stream. Present only in dumps
// produced by an assertion failure.
func (md *Minidump) GetAssertion() (*Assertion, error) {
	data, err := md.streamData(AssertionInfoStream)
	if err != nil {
		return nil, err
	}
	var raw RawAssertionInfo
	if err := binary.Read(bytes.NewReader(data), md.order, &raw); err != nil {
		return nil, md.streamErr(AssertionInfoStream, errors.Wrap(err, "assertion record"))
	}
	return &Assertion{
		Expression: utf16Fixed(raw.Expression[:]),
		Function:   utf16Fixed(raw.Function[:]),
		File:       utf16Fixed(raw.File[:]),
		Line:       raw.Line,
		Type:       raw.Type,
	}, nil
}

// Print writes the assertion record to w.
func (a *Assertion) Print(w io.Writer) {
	fmt.Fprintf(w, "MDAssertion\n")
	fmt.Fprintf(w, "  expression = %s\n", a.Expression)
	fmt.Fprintf(w, "  function   = %s\n", a.Function)
	fmt.Fprintf(w, "  file       = %s\n", a.File)
	fmt.Fprintf(w, "  line       = %d\n", a.Line)
	fmt.Fprintf(w, "  type       = %d\n", a.Type)
	fmt.Fprintf(w, "\n")
}
