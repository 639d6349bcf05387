package httpx

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without internal err",
			err:  NewAppError(http.StatusBadRequest, CodeParamMissing, "param missing", nil),
			want: "code=2001, message=param missing",
		},
		{
			name: "error with internal err",
			err:  NewAppError(http.StatusInternalServerError, CodeInternalError, "internal error", errors.New("db connection failed")),
			want: "code=5001, message=internal error, err=db connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrUnauthorized(t *testing.T) {
	err := ErrUnauthorized("")
	if err.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("Expected HTTP status %d, got %d", http.StatusUnauthorized, err.HTTPStatus)
	}
	if err.Code != CodeUnauthorized {
		t.Errorf("Expected code %d, got %d", CodeUnauthorized, err.Code)
	}
	if err.Message != "unauthorized" {
		t.Errorf("Expected message 'unauthorized', got '%s'", err.Message)
	}
}

func TestErrNotFound(t *testing.T) {
	err := ErrNotFound("endpoint not found")
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("Expected HTTP status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Code != CodeNotFound {
		t.Errorf("Expected code %d, got %d", CodeNotFound, err.Code)
	}
}

// State-precondition violations return 400, not 409: the caller sent a
// well-formed request that the current record state refuses.
func TestErrStateConflict_IsBadRequest(t *testing.T) {
	err := ErrStateConflict("endpoint is already verified (status=VERIFIED)")
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("Expected HTTP status %d, got %d", http.StatusBadRequest, err.HTTPStatus)
	}
	if err.Code != CodeStateConflict {
		t.Errorf("Expected code %d, got %d", CodeStateConflict, err.Code)
	}
}

func TestErrNoEntity_IsForbidden(t *testing.T) {
	err := ErrNoEntity("")
	if err.HTTPStatus != http.StatusForbidden {
		t.Errorf("Expected HTTP status %d, got %d", http.StatusForbidden, err.HTTPStatus)
	}
	if err.Code != CodeNoEntity {
		t.Errorf("Expected code %d, got %d", CodeNoEntity, err.Code)
	}
}

func TestErrUnsafeURL(t *testing.T) {
	err := ErrUnsafeURL("Private IP range not allowed: 10.0.0.5")
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("Expected HTTP status %d, got %d", http.StatusBadRequest, err.HTTPStatus)
	}
	if err.Code != CodeUnsafeURL {
		t.Errorf("Expected code %d, got %d", CodeUnsafeURL, err.Code)
	}
}

func TestErrInternalError(t *testing.T) {
	internalErr := errors.New("database connection failed")
	err := ErrInternalError("internal error", internalErr)

	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("Expected HTTP status %d, got %d", http.StatusInternalServerError, err.HTTPStatus)
	}
	if err.Code != CodeInternalError {
		t.Errorf("Expected code %d, got %d", CodeInternalError, err.Code)
	}
	if err.Err != internalErr {
		t.Errorf("Expected internal error to be preserved")
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
		min  int
		max  int
	}{
		{"CodeSuccess", CodeSuccess, 0, 0},
		{"CodeUnauthorized", CodeUnauthorized, 1000, 1099},
		{"CodeInvalidToken", CodeInvalidToken, 1000, 1099},
		{"CodeTokenExpired", CodeTokenExpired, 1000, 1099},
		{"CodeNoEntity", CodeNoEntity, 1000, 1099},
		{"CodeParamMissing", CodeParamMissing, 2000, 2099},
		{"CodeParamInvalid", CodeParamInvalid, 2000, 2099},
		{"CodeUnsafeURL", CodeUnsafeURL, 2000, 2099},
		{"CodeNotFound", CodeNotFound, 3000, 3999},
		{"CodeStateConflict", CodeStateConflict, 3000, 3999},
		{"CodeInternalError", CodeInternalError, 5000, 5999},
		{"CodeDatabaseError", CodeDatabaseError, 5000, 5999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code < tt.min || tt.code > tt.max {
				t.Errorf("%s = %d, expected to be in range [%d, %d]", tt.name, tt.code, tt.min, tt.max)
			}
		})
	}
}
