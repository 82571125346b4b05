package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/trivia/config"
)

func TestOpen_Disabled(t *testing.T) {
	store, err := Open(config.DatabaseConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
