package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, "Member added successfully", map[string]string{"id": "m1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, true, env["success"])
	assert.Equal(t, "Member added successfully", env["message"])
	assert.Equal(t, "m1", env["data"].(map[string]interface{})["id"])
}

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusBadRequest, "Please upload a CSV file")
	assert.JSONEq(t, `{"success":false,"message":"Please upload a CSV file"}`, rec.Body.String())
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "text/plain", "codes.txt", []byte("x"))
	assert.Equal(t, `attachment; filename="codes.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "x", rec.Body.String())
}
