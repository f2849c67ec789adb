package apierrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:         404,
		KindValidation:       400,
		KindData:             422,
		KindModel:            500,
		KindExternalService:  502,
	}
	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", kind, got, want)
		}
	}
}

func TestAsUnwrapsWrappedError(t *testing.T) {
	inner := NotFound("dataset %d", 7)
	wrapped := fmt.Errorf("loading: %w", inner)

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("As() did not find the domain error")
	}
	if got.Kind != KindNotFound {
		t.Errorf("Kind = %v, want KindNotFound", got.Kind)
	}
}

func TestAsOnPlainError(t *testing.T) {
	if _, ok := As(errors.New("boom")); ok {
		t.Error("As() found a domain error in a plain error")
	}
}
