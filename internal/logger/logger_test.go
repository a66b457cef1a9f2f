package logger_test

import (
	"testing"

	"github.com/TalariManohar018/papertrade/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Development(t *testing.T) {
	log, err := logger.New(true)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNew_Production(t *testing.T) {
	log, err := logger.New(false)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestMust(t *testing.T) {
	assert.NotPanics(t, func() {
		log := logger.Must(true)
		assert.NotNil(t, log)
	})
}

func TestComponent_NilLogger(t *testing.T) {
	log := logger.Component(nil, "simulator")
	assert.NotNil(t, log)
}
