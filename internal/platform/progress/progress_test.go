package progress

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nasa/earthdata-mcp/internal/platform/logger"
)

func TestNewBusRequiresAddress(t *testing.T) {
	log, err := logger.New("development")
	require.NoError(t, err)

	_, err = NewBus(log, "", "pipeline-progress")
	require.Error(t, err)
}

func TestNewBusFailsFastOnUnreachableRedis(t *testing.T) {
	log, err := logger.New("development")
	require.NoError(t, err)

	_, err = NewBus(log, "127.0.0.1:1", "pipeline-progress")
	require.Error(t, err)
}
