// Package errors provides structured error handling for PlotStream.
//
// Errors are classified into three classes that drive handling decisions:
//
//   - Transient: temporary failures (connection timeout, peer reset) that
//     callers may retry via pkg/retry
//   - Invalid: bad input, bad configuration, or misuse (write while not
//     connected, malformed COBS frame); never retried
//   - Fatal: unrecoverable failures that stop processing
//
// Components wrap errors with context using Wrap/WrapTransient/WrapInvalid/
// WrapFatal, producing messages of the form "component.method: action failed".
// Classification survives wrapping and is queried with IsTransient, IsInvalid,
// IsFatal, or ClassOf.
package errors
