package mcpserver

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"asyncgen/internal/logger"
)

// Notifier is a service.EventEmitter that forwards events to every
// connected MCP client. Until a server is bound it only logs.
type Notifier struct {
	mu  sync.RWMutex
	srv *server.MCPServer
	log *logger.Logger
}

// NewNotifier creates an unbound Notifier.
func NewNotifier(log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{log: log}
}

func (n *Notifier) bind(srv *server.MCPServer) {
	n.mu.Lock()
	n.srv = srv
	n.mu.Unlock()
}

// Emit sends event as "notifications/<event>". String maps are flattened
// into the params; anything else is sent under "data".
func (n *Notifier) Emit(_ context.Context, event string, data any) {
	n.log.Debug("event", "event", event, "data", data)

	n.mu.RLock()
	srv := n.srv
	n.mu.RUnlock()
	if srv == nil {
		return
	}
	srv.SendNotificationToAllClients("notifications/"+event, notificationParams(data))
}

func notificationParams(data any) map[string]any {
	params := map[string]any{}
	switch d := data.(type) {
	case nil:
	case map[string]string:
		for k, v := range d {
			params[k] = v
		}
	default:
		params["data"] = d
	}
	return params
}
