package apierr

import "fmt"

// Kind identifies which stage of the pipeline produced an error, so
// handlers can decide whether to retry, drop, or surface the item as a
// batch-item failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindCMR        Kind = "cmr"
	KindEmbedding  Kind = "embedding"
	KindStorage    Kind = "storage"
)

type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func Validation(err error) *Error { return New(KindValidation, "", err) }
func CMR(err error) *Error        { return New(KindCMR, "", err) }
func Embedding(err error) *Error  { return New(KindEmbedding, "", err) }
func Storage(err error) *Error    { return New(KindStorage, "", err) }
