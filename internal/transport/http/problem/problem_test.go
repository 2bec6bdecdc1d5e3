package problem_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/waitlistd/internal/core/errkind"
	"github.com/ManuGH/waitlistd/internal/transport/http/problem"
)

func TestWrite_SetsRFC7807Fields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/slots/abc/confirm", nil)
	w := httptest.NewRecorder()

	problem.Write(w, req, http.StatusConflict, "waitlist/conflict", "Conflict", "CONFLICT", "already booked", nil)

	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "waitlist/conflict", body["type"])
	assert.Equal(t, "Conflict", body["title"])
	assert.Equal(t, float64(http.StatusConflict), body["status"])
	assert.Equal(t, "CONFLICT", body["code"])
	assert.Equal(t, "already booked", body["detail"])
	assert.Equal(t, "/v1/slots/abc/confirm", body["instance"])
}

func TestWrite_ExtraIgnoresReservedKeys(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/slots/abc", nil)
	w := httptest.NewRecorder()

	problem.Write(w, req, http.StatusNotFound, "waitlist/not_found", "Not Found", "NOT_FOUND", "", map[string]any{
		"type":     "should-be-ignored",
		"slot_id":  "abc",
		"detail":   "should-also-be-ignored",
	})

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "waitlist/not_found", body["type"])
	assert.Equal(t, "abc", body["slot_id"])
	assert.NotContains(t, body, "detail")
}

func TestWriteErr_ClassifiesDetailBeforeKind(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/slots/abc/confirm", nil)
	w := httptest.NewRecorder()

	err := errkind.WithDetail(errkind.DetailSlotNoLongerAvailable, "slot no longer available")
	problem.WriteErr(w, req, err)

	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "waitlist/slot_no_longer_available", body["type"])
	assert.Equal(t, "SLOT_NO_LONGER_AVAILABLE", body["code"])
}

func TestWriteErr_UnclassifiedErrorIsInternal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/slots/abc", nil)
	w := httptest.NewRecorder()

	problem.WriteErr(w, req, assertAnError{})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "waitlist/internal", body["type"])
}

func TestWriteErr_NotFoundKind(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/slots/missing", nil)
	w := httptest.NewRecorder()

	problem.WriteErr(w, req, errkind.New(errkind.NotFound, "slot not found: missing"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["code"])
}

type assertAnError struct{}

func (assertAnError) Error() string { return "boom" }
