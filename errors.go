package feedloader

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stage names a step of the pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageConfig    Stage = "config"
	StageFetch     Stage = "fetch"
	StageTransform Stage = "transform"
	StageWrite     Stage = "write"
	StageArchive   Stage = "archive"
	StageLoad      Stage = "load"
	StageNotify    Stage = "notify"
)

// StageError is returned by Pipeline.Run and names the stage that aborted the run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FetchError reports a transport failure, a non-success status or an unreadable body.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MissingFieldError reports a required key absent from a source record.
// Path is dotted, e.g. "rating.rate".
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Path)
}

// TypeMismatchError reports a field that exists but cannot be coerced to its column type.
// An empty Path means the record itself.
type TypeMismatchError struct {
	Path  string
	Want  string
	Value interface{}
}

func (e *TypeMismatchError) Error() string {
	path := e.Path
	if path == "" {
		path = "record"
	}
	return fmt.Sprintf("field %q: cannot use %s as %s", path, describe(e.Value), e.Want)
}

// RecordError ties a record failure to its position in the document.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// IOWriteError reports an artifact that could not be created or written.
type IOWriteError struct {
	Path string
	Err  error
}

func (e *IOWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOWriteError) Unwrap() error { return e.Err }

// LoadError carries the cause reported by the warehouse.
type LoadError struct {
	Table  string
	Err    error
	Causes []string
}

func (e *LoadError) Error() string {
	if len(e.Causes) > 0 {
		return fmt.Sprintf("load into %s: %v (%s)", e.Table, e.Err, strings.Join(e.Causes, "; "))
	}
	return fmt.Sprintf("load into %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func describe(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case json.Number:
		return "number " + v.String()
	case bool:
		return fmt.Sprintf("bool %t", v)
	case string:
		return fmt.Sprintf("string %q", v)
	default:
		return fmt.Sprintf("%T %v", v, v)
	}
}
