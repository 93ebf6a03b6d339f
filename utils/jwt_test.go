package utils

import (
	"testing"
	"time"

	"sessionbook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorFromToken(t *testing.T) {
	tok, err := GenerateToken("s3cret", "consumer-1", models.RoleConsumer, time.Hour)
	require.NoError(t, err)

	actor, err := ActorFromToken("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{ID: "consumer-1", Role: models.RoleConsumer}, actor)

	_, err = ActorFromToken("other", tok)
	assert.Error(t, err)

	_, err = ActorFromToken("", tok)
	assert.Error(t, err)
}

func TestActorFromTokenRejectsExpiredAndUnknownRole(t *testing.T) {
	expired, err := GenerateToken("s3cret", "consumer-1", models.RoleConsumer, -time.Minute)
	require.NoError(t, err)
	_, err = ActorFromToken("s3cret", expired)
	assert.Error(t, err)

	odd, err := GenerateToken("s3cret", "x", models.Role("janitor"), time.Hour)
	require.NoError(t, err)
	_, err = ActorFromToken("s3cret", odd)
	assert.Error(t, err)
}
