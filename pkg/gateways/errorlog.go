package gateways

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/phone"
)

// ErrorlogGateway appends one JSON line per message to a file. It is meant
// for development and as a last-resort fallback.
type ErrorlogGateway struct {
	gateway.Base
	file string
	mu   sync.Mutex
}

type errorlogLine struct {
	Time     time.Time    `json:"time"`
	To       string       `json:"to"`
	Type     string       `json:"type"`
	Content  string       `json:"content,omitempty"`
	Template string       `json:"template,omitempty"`
	Data     message.Data `json:"data"`
}

// NewErrorlog creates the errorlog gateway. Config "file" names the output
// file; it defaults to easysms.log in the temp directory.
func NewErrorlog(cfg *config.Config, _ logger.Logger) (gateway.Gateway, error) {
	g := &ErrorlogGateway{}
	g.Base = gateway.NewBase(gateway.DeriveName(g), cfg)
	g.file = g.Config().GetString("file", filepath.Join(os.TempDir(), "easysms.log"))
	return g, nil
}

// Send appends the message to the log file
func (g *ErrorlogGateway) Send(_ context.Context, to *phone.Number, msg *message.Message, _ *config.Config) (gateway.Result, error) {
	line, err := json.Marshal(errorlogLine{
		Time:     now().UTC(),
		To:       to.UniversalNumber(),
		Type:     string(msg.Type()),
		Content:  msg.Content(g),
		Template: msg.Template(g),
		Data:     msg.Data(g),
	})
	if err != nil {
		return nil, gateway.WrapError(err, "failed to encode message")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	f, err := os.OpenFile(g.file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, gateway.NewError("failed to open log file", nil, map[string]any{"file": g.file, "error": err.Error()})
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return nil, gateway.NewError("failed to write log file", nil, map[string]any{"file": g.file, "error": err.Error()})
	}
	return gateway.Result{"status": "written", "file": g.file}, nil
}
