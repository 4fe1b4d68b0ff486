package registrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vestige-studio/payments-bridge/internal/models"
	"github.com/vestige-studio/payments-bridge/internal/sheets"
	"github.com/vestige-studio/payments-bridge/pkg/response"
)

type mockForwarder struct {
	records []models.Record
	result  sheets.Result
	err     error
}

func (m *mockForwarder) Forward(_ context.Context, rec models.Record) (sheets.Result, error) {
	m.records = append(m.records, rec)
	return m.result, m.err
}

func setupRouter(fwd *mockForwarder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(fwd, nil, nil)
	router := gin.New()
	router.POST("/register-free", h.RegisterFree)
	return router
}

func post(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/register-free", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const validBody = `{
	"nom": "Dupont",
	"prenom": "Marie",
	"age": 34,
	"email": "a@b.com",
	"premier_cours": true,
	"course": {"style": "Salsa", "date": "2024-05-01", "time": "18:00", "teacher": "X", "level": "Débutant", "price": 0}
}`

func TestRegisterFree(t *testing.T) {
	fwd := &mockForwarder{result: sheets.Result{Status: 200, Body: "Inscription enregistrée"}}
	w := post(setupRouter(fwd), validBody)

	require.Equal(t, http.StatusOK, w.Code)
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Inscription enregistrée", body.Message)

	require.Len(t, fwd.records, 1)
	rec := fwd.records[0]
	assert.Equal(t, "cours", rec[models.KeyType])
	assert.Equal(t, "Dupont", rec[models.KeyNom])
	assert.Equal(t, "34", rec[models.KeyAge])
	assert.Equal(t, "Oui", rec[models.KeyPremierCours])
	assert.Equal(t, models.StatusFree, rec[models.KeyStatutPaiement])
	assert.Contains(t, rec[models.KeyRecapitulatif], "Salsa")
}

func TestRegisterFree_ForwardFailure(t *testing.T) {
	fwd := &mockForwarder{err: &sheets.ForwardError{Err: errors.New("connection refused")}}
	w := post(setupRouter(fwd), validBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "connection refused")
}

func TestRegisterFree_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"MissingName", `{"email":"a@b.com","course":{"style":"Salsa","date":"2024-05-01"}}`},
		{"BadEmail", `{"nom":"Dupont","email":"nope","course":{"style":"Salsa","date":"2024-05-01"}}`},
		{"MissingCourse", `{"nom":"Dupont","email":"a@b.com"}`},
		{"Malformed", `{"nom":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd := &mockForwarder{}
			w := post(setupRouter(fwd), tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, fwd.records)
		})
	}
}
