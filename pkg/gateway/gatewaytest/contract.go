package gatewaytest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

// ContractTest checks the behaviour every gateway must share.
type ContractTest struct {
	// Name is the name the gateway must report
	Name string
	// Creator builds the gateway under test
	Creator gateway.Creator
	// Config is a working configuration
	Config map[string]any
	// FailingConfig, when set, must make Send fail with *gateway.Error
	FailingConfig map[string]any
}

// Run executes the contract checks as subtests
func (c ContractTest) Run(t *testing.T) {
	t.Helper()

	t.Run("Name", func(t *testing.T) {
		gw := c.create(t, c.Config)
		assert.Equal(t, c.Name, gw.Name())
	})

	t.Run("TimeoutFromConfig", func(t *testing.T) {
		gw := c.create(t, withKey(c.Config, "timeout", 3))
		assert.Equal(t, 3*time.Second, gw.Timeout())
	})

	t.Run("TransportOptions", func(t *testing.T) {
		opts := map[string]any{"verify": false}
		gw := c.create(t, withKey(c.Config, "options", opts))
		assert.Equal(t, opts, gw.TransportOptions())
	})

	if c.FailingConfig != nil {
		t.Run("FailureIsGatewayError", func(t *testing.T) {
			cfg := config.NewConfig(c.FailingConfig)
			gw := c.create(t, c.FailingConfig)
			msg := message.NewBuilder().SetContent("contract").SetTemplate("T1").AddData("code", "1").Build()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := gw.Send(ctx, phone.New("+8618888888888"), msg, cfg)
			require.Error(t, err)

			gwErr, ok := gateway.AsError(err, gw.Name())
			require.True(t, ok, "expected *gateway.Error, got %T: %v", err, err)
			assert.NotEmpty(t, gwErr.Message)
		})
	}
}

func (c ContractTest) create(t *testing.T, settings map[string]any) gateway.Gateway {
	t.Helper()
	gw, err := c.Creator(config.NewConfig(settings), logger.Discard)
	require.NoError(t, err)
	require.NotNil(t, gw)
	return gw
}

func withKey(settings map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(settings)+1)
	for k, v := range settings {
		out[k] = v
	}
	out[key] = value
	return out
}
