package control

import "log/slog"

// Request carries a decoded control command's raw JSON payload.
type Request struct {
	Payload string
}

// Response is populated by a HandlerFunc with the JSON body to reply with.
type Response struct {
	JSON string
}

// HandlerFunc handles one named control command.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

// Router dispatches control commands by exact name; the command set is
// small and fixed, so unlike the ambient HTTP-style API this needs no path
// pattern matching.
type Router struct {
	handlers map[string]HandlerFunc
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Register binds name to handler.
func (r *Router) Register(name string, handler HandlerFunc) {
	r.handlers[name] = handler
}

// Match returns the handler registered for name, or nil.
func (r *Router) Match(name string) HandlerFunc {
	return r.handlers[name]
}
