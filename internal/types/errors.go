package types

import "fmt"

// NetworkError indicates the source document could not be fetched.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network: %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError indicates the HTML or the rate file had an unexpected shape.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse: %s: %v", e.Op, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// DataError indicates a missing currency key or a malformed row.
type DataError struct {
	Op  string
	Err error
}

func (e *DataError) Error() string { return fmt.Sprintf("data: %s: %v", e.Op, e.Err) }
func (e *DataError) Unwrap() error { return e.Err }

// StoreError indicates a write or query failure against a sink.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// FileError indicates flat-file I/O failure.
type FileError struct {
	Op  string
	Err error
}

func (e *FileError) Error() string { return fmt.Sprintf("file: %s: %v", e.Op, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

func ErrNetwork(op string, err error) *NetworkError { return &NetworkError{Op: op, Err: err} }
func ErrParse(op string, err error) *ParseError     { return &ParseError{Op: op, Err: err} }
func ErrData(op string, err error) *DataError       { return &DataError{Op: op, Err: err} }
func ErrStore(op string, err error) *StoreError     { return &StoreError{Op: op, Err: err} }
func ErrFile(op string, err error) *FileError       { return &FileError{Op: op, Err: err} }
