package handlers

import (
	"testing"

	"sessionbook/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatusTagIsRegistered(t *testing.T) {
	require.NotPanics(t, registerValidators)

	assert.NoError(t, binding.Validator.ValidateStruct(&statusRequest{Status: models.StatusCompleted}))
	assert.Error(t, binding.Validator.ValidateStruct(&statusRequest{Status: "paused"}))

	assert.NoError(t, binding.Validator.ValidateStruct(&listQuery{Status: []string{"confirmed", "failed"}}))
	assert.Error(t, binding.Validator.ValidateStruct(&listQuery{Status: []string{"confirmed", "paused"}}))
}
