package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coachlink/coachlink-go/internal/invitation"
)

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	w := httptest.NewRecorder()

	HealthHandler(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.StatusCode)
	}

	var resp HealthResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", resp.Status)
	}
}

func TestWriteError_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusConflict, ReasonDuplicatePending, "already invited")

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusConflict {
		t.Errorf("expected status 409, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var envelope ErrorEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if envelope.Error.Code != http.StatusText(http.StatusConflict) {
		t.Errorf("code = %q", envelope.Error.Code)
	}
	if envelope.Error.ReasonCode != ReasonDuplicatePending {
		t.Errorf("reason_code = %q", envelope.Error.ReasonCode)
	}
	if envelope.Error.Message != "already invited" {
		t.Errorf("message = %q", envelope.Error.Message)
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{
			name:       "not found",
			err:        invitation.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantReason: ReasonNotFound,
		},
		{
			name:       "duplicate pending",
			err:        invitation.ErrDuplicatePending,
			wantStatus: http.StatusConflict,
			wantReason: ReasonDuplicatePending,
		},
		{
			name:       "invalid transition",
			err:        &invitation.InvalidTransitionError{Action: "cancel", Status: invitation.StatusAccepted},
			wantStatus: http.StatusConflict,
			wantReason: ReasonInvalidState,
		},
		{
			name:       "status conflict",
			err:        &invitation.StatusConflictError{Current: invitation.StatusCancelled},
			wantStatus: http.StatusConflict,
			wantReason: ReasonConflict,
		},
		{
			name:       "precondition",
			err:        &invitation.PreconditionError{Reason: "terms version is required"},
			wantStatus: http.StatusUnprocessableEntity,
			wantReason: ReasonPreconditionFailed,
		},
		{
			name:       "broken reference",
			err:        &invitation.BrokenReferenceError{InvitationID: "inv-1", Detail: "coach profile"},
			wantStatus: http.StatusInternalServerError,
			wantReason: ReasonBrokenReference,
		},
		{
			name:       "wrapped not found",
			err:        errors.Join(errors.New("context"), invitation.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantReason: ReasonNotFound,
		},
		{
			name:       "unknown error never leaks",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantReason: ReasonInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteDomainError(w, tt.err)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}

			var envelope ErrorEnvelope
			if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if envelope.Error.ReasonCode != tt.wantReason {
				t.Errorf("reason_code = %q, want %q", envelope.Error.ReasonCode, tt.wantReason)
			}
		})
	}
}
