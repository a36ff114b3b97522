package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/harvestlink/market-backend/pkg/errors"
	"github.com/harvestlink/market-backend/pkg/logger"
)

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"order_id": "abc"})

	require.Equal(t, http.StatusCreated, w.Code)
	var body SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "abc", body.Data.(map[string]any)["order_id"])
}

func TestWriteErrorMapsCodes(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: io.Discard})
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{pkgerrors.New(pkgerrors.CodeValidation, "validation failed"), http.StatusBadRequest, "validation failed"},
		{pkgerrors.New(pkgerrors.CodeForbidden, "no permission to operate this order"), http.StatusForbidden, "no permission to operate this order"},
		{pkgerrors.New(pkgerrors.CodeNotFound, "order not found"), http.StatusNotFound, "order not found"},
		{pkgerrors.New(pkgerrors.CodeConflict, "product sold out"), http.StatusConflict, "product sold out"},
		{pkgerrors.New(pkgerrors.CodePaymentRequired, "insufficient balance"), http.StatusPaymentRequired, "insufficient balance"},
		{pkgerrors.New(pkgerrors.CodeRateLimit, "too many orders"), http.StatusTooManyRequests, "too many orders"},
		{pkgerrors.New(pkgerrors.CodeInternal, "farmer account missing"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), logg, w, tc.err)

		assert.Equal(t, tc.status, w.Code, tc.message)
		var body ErrorEnvelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, tc.message, body.Error.Message)
	}
}

func TestWriteErrorKeepsConflictDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeConflict, "cannot refund twice").
		WithDetails(map[string]any{"field": "status", "current": "refunded"})
	WriteError(context.Background(), nil, w, err)

	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeConflict), body.Error.Code)
	assert.Equal(t, "refunded", body.Error.Details["current"])
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Nil(t, body.Error.Details)
}

func TestWriteSuccessFallsBackWhenPayloadCannotEncode(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]any{"bad": make(chan int)})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
}
