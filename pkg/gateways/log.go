package gateways

import (
	"context"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

// LogGateway writes each message to the logger instead of sending it.
type LogGateway struct {
	gateway.Base
	logger logger.Logger
}

// NewLog creates the log gateway
func NewLog(cfg *config.Config, log logger.Logger) (gateway.Gateway, error) {
	g := &LogGateway{logger: logger.OrDiscard(log)}
	g.Base = gateway.NewBase(gateway.DeriveName(g), cfg)
	return g, nil
}

// Send logs the resolved message at Info level
func (g *LogGateway) Send(_ context.Context, to *phone.Number, msg *message.Message, _ *config.Config) (gateway.Result, error) {
	data := msg.Data(g)
	g.logger.Info("SMS logged",
		"to", to.UniversalNumber(),
		"type", string(msg.Type()),
		"content", msg.Content(g),
		"template", msg.Template(g),
		"data", data.Map(),
	)
	return gateway.Result{"status": "logged", "to": to.UniversalNumber()}, nil
}
