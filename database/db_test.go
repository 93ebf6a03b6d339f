package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectReportsBadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	client, err := Connect(ctx, "not-a-mongo-uri")
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "connect to MongoDB")
}

func TestCloseWithoutClient(t *testing.T) {
	saved := MongoClient
	MongoClient = nil
	t.Cleanup(func() { MongoClient = saved })

	assert.NoError(t, Close(context.Background()))
}
