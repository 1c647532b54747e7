package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustchain/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantStatus      int
		wantCode        string
		wantDescription string
	}{
		{"internal error omits description", dErrors.New(dErrors.CodeInternal, "db failed"), http.StatusInternalServerError, "internal_error", ""},
		{"persistence error omits description", dErrors.Wrap(errors.New("dial tcp"), dErrors.CodePersistence, "failed to append"), http.StatusServiceUnavailable, "persistence_error", ""},
		{"plain error is internal", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
		{"invalid amount", dErrors.New(dErrors.CodeInvalidAmount, "amount must be positive"), http.StatusBadRequest, "invalid_amount", "amount must be positive"},
		{"overfunding", dErrors.New(dErrors.CodeOverfunding, "exceeds remaining"), http.StatusConflict, "overfunding_rejected", "exceeds remaining"},
		{"not fully funded", dErrors.New(dErrors.CodeNotFullyFunded, "still open"), http.StatusConflict, "not_fully_funded", "still open"},
		{"unsupported document", dErrors.New(dErrors.CodeUnsupportedDocument, "text/plain"), http.StatusUnsupportedMediaType, "unsupported_document_type", "text/plain"},
		{"not found", dErrors.New(dErrors.CodeNotFound, "beneficiary not found"), http.StatusNotFound, "not_found", "beneficiary not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body["error"])
			if tt.wantDescription == "" {
				_, ok := body["error_description"]
				assert.False(t, ok, "expected error_description to be omitted")
				return
			}
			assert.Equal(t, tt.wantDescription, body["error_description"])
		})
	}
}
