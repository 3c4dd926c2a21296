package httperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestConstructorsSetStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"bad request", BadRequest("c", "m", nil), http.StatusBadRequest},
		{"not found", NotFound("c", "m", nil), http.StatusNotFound},
		{"unprocessable", UnprocessableEntity("c", "m", nil), http.StatusUnprocessableEntity},
		{"internal", InternalServerError("c", "m", nil), http.StatusInternalServerError},
		{"unavailable", ServiceUnavailable("c", "m", nil), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Status != tt.want {
				t.Errorf("status = %d, want %d", tt.err.Status, tt.want)
			}
		})
	}
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := InternalServerError("x.failed", "Failed", nil).WithCause(cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the cause")
	}

	var httpErr *Error
	if !errors.As(error(err), &httpErr) {
		t.Fatal("expected errors.As to match *Error")
	}
	if httpErr.Error() != "x.failed: Failed: boom" {
		t.Fatalf("unexpected message %q", httpErr.Error())
	}
}
