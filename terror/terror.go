// SPDX-License-Identifier: ice License 1.0

package terror

import (
	"github.com/pkg/errors"
)

func New(err error, data map[string]any) *Err {
	return &Err{error: err, Data: data}
}

// Wrap keeps err as the cause, so errors.Is against its sentinel still holds.
func Wrap(err error, msg string, data map[string]any) *Err {
	return New(errors.Wrap(err, msg), data)
}

func As(err error) *Err {
	tErr := new(Err)
	if ok := errors.As(err, tErr); ok {
		return tErr
	}

	return nil
}

func (e *Err) Field(key string) any {
	if e == nil || e.Data == nil {
		return nil
	}

	return e.Data[key]
}

func (e *Err) Is(target error) bool {
	return errors.Is(e.error, target)
}

func (e *Err) Unwrap() error {
	return e.error
}

func (e *Err) As(err any) bool {
	o, ok := err.(*Err)
	if ok {
		*o = *e
	}

	return ok
}
