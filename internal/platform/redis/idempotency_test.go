package redis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

func TestDecodeStored(t *testing.T) {
	_, err := decodeStored([]byte(pendingValue))
	assert.True(t, errors.Is(err, ErrInFlight))

	raw, err := json.Marshal(StoredResponse{Status: 201, ContentType: "application/json", Body: []byte(`{"id":"x"}`)})
	require.NoError(t, err)
	got, err := decodeStored(raw)
	require.NoError(t, err)
	assert.Equal(t, 201, got.Status)
	assert.JSONEq(t, `{"id":"x"}`, string(got.Body))

	_, err = decodeStored([]byte("{broken"))
	assert.Error(t, err)
}

func TestNewClientWithoutAddrIsDisabled(t *testing.T) {
	rdb, err := NewClient(logger.NewNop(), Config{})
	require.NoError(t, err)
	assert.Nil(t, rdb)
}
