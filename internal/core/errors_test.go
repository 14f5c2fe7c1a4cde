package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassesSurviveWrapping(t *testing.T) {
	cases := []struct {
		err  error
		is   error
		isnt error
	}{
		{fmt.Errorf("%w: income must be positive", ErrValidation), ErrValidation, ErrConflict},
		{fmt.Errorf("%w: month 42", ErrNotFound), ErrNotFound, ErrValidation},
		{fmt.Errorf("%w: a month is already open", ErrConflict), ErrConflict, ErrNotFound},
		{fmt.Errorf("%w: insert transaction: disk full", ErrStorage), ErrStorage, ErrValidation},
		{ErrInvalidAmount, ErrValidation, ErrStorage},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.is) {
			t.Fatalf("%v should match %v", tc.err, tc.is)
		}
		if errors.Is(tc.err, tc.isnt) {
			t.Fatalf("%v should not match %v", tc.err, tc.isnt)
		}
	}
}
