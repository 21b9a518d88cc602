package controllers

import (
	"net/http"
	"testing"

	"revisitly-backend/models"
	"revisitly-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCheckin_Success(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBusiness(t, models.PlanStarter)

	w := env.do(http.MethodPost, "/api/checkin", map[string]string{
		"businessId":   b.ID.String(),
		"businessName": "Anything",
		"name":         "Sarah",
		"email":        "sarah@example.com",
		"service":      "Haircut",
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decodeBody(t, w)["success"])
	assert.Equal(t, 1, env.mailer.sent)
}

func TestCheckin_MissingEmail(t *testing.T) {
	env := newTestEnv(t)
	b := env.seedBusiness(t, models.PlanStarter)

	w := env.do(http.MethodPost, "/api/checkin", map[string]string{"businessId": b.ID.String(), "name": "Sarah"}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, utils.CodeInvalidInput, body["code"])
	assert.Contains(t, body["error"], "email")
	assert.Equal(t, 0, env.mailer.sent)
}

func TestCheckin_UnknownBusiness(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/checkin", map[string]string{"businessId": uuid.NewString(), "name": "Sarah", "email": "sarah@example.com"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckin_SendFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errProvider
	b := env.seedBusiness(t, models.PlanStarter)

	w := env.do(http.MethodPost, "/api/checkin", map[string]string{"businessId": b.ID.String(), "name": "Sarah", "email": "sarah@example.com"}, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, genericFailure, body["error"])
	assert.NotContains(t, w.Body.String(), errProvider.Error())
}

func TestCheckin_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/checkin", []byte("{not json"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
