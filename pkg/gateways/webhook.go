package gateways

import (
	"context"
	"fmt"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

// WebhookGateway posts the resolved message as JSON to a URL. Config: "url"
// (required), "headers" (map of extra request headers).
type WebhookGateway struct {
	gateway.Base
	client *gateway.Client
	logger logger.Logger
}

type webhookPayload struct {
	To       string       `json:"to"`
	IDDCode  int          `json:"idd_code,omitempty"`
	Number   string       `json:"number"`
	Type     string       `json:"type"`
	Content  string       `json:"content,omitempty"`
	Template string       `json:"template,omitempty"`
	Data     message.Data `json:"data"`
}

// NewWebhook creates the webhook gateway
func NewWebhook(cfg *config.Config, log logger.Logger) (gateway.Gateway, error) {
	g := &WebhookGateway{logger: logger.OrDiscard(log)}
	g.Base = gateway.NewBase(gateway.DeriveName(g), cfg)
	if err := requireKeys(g.Name(), g.Config(), "url"); err != nil {
		return nil, err
	}
	g.client = gateway.NewClient(g.TransportOptions())
	return g, nil
}

// Send posts the message and returns the decoded response body. Any non-2xx
// status is a gateway error.
func (g *WebhookGateway) Send(ctx context.Context, to *phone.Number, msg *message.Message, cfg *config.Config) (gateway.Result, error) {
	headers := map[string]string{}
	for k, v := range cfg.GetStringMap("headers") {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}

	endpoint := cfg.GetString("url", g.Config().GetString("url", ""))
	g.logger.Debug("Posting webhook", "url", endpoint)

	resp, err := g.client.PostJSON(ctx, endpoint, webhookPayload{
		To:       to.UniversalNumber(),
		IDDCode:  to.IDDCode(),
		Number:   to.Number(),
		Type:     string(msg.Type()),
		Content:  msg.Content(g),
		Template: msg.Template(g),
		Data:     msg.Data(g),
	}, headers)
	if err != nil {
		return nil, err
	}

	body, err := resp.JSON()
	if err != nil {
		body = map[string]any{"body": string(resp.Body)}
	}
	if !resp.OK() {
		return nil, gateway.NewError(fmt.Sprintf("webhook returned HTTP %d", resp.StatusCode), resp.StatusCode, body)
	}
	return body, nil
}
