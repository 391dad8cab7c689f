// Package plugin recovers the interceptor hook chain proxy.py's original
// HttpProxyBasePlugin exposed (before_upstream_connection,
// handle_client_request, handle_upstream_chunk,
// on_upstream_connection_close) in a minimal Go shape: a chain of
// Interceptor values, each implementing zero or more of the three hook
// interfaces below. handle_client_request has no counterpart here. spec.md's distillation dropped plugins; this is an
// expansion recovered from the original implementation (see DESIGN.md).
package plugin

// Interceptor is any value registered in a Chain. It implements zero or
// more of the hook interfaces below; Chain type-asserts against each at
// the matching call site, the way a dynamically-typed plugin registry
// would dispatch optional hooks.
type Interceptor interface {
	Name() string
}

// BeforeUpstreamConnector is called just before a ProxySession dials the
// upstream host. Returning an error aborts the dial; the session surfaces
// it as a ProxyConnectionFailed.
type BeforeUpstreamConnector interface {
	Interceptor
	BeforeUpstreamConnect(host string, port int) error
}

// UpstreamChunkObserver is called with each raw chunk of upstream bytes as
// they are relayed to the client: in HTTP mode after the response parser has
// seen them, in tunnel mode verbatim. It never mutates the bytes — spec.md's Non-goals exclude
// content rewriting beyond the request line.
type UpstreamChunkObserver interface {
	Interceptor
	OnUpstreamResponseChunk(data []byte)
}

// UpstreamCloseObserver is called once when the upstream connection (if
// any) is torn down, successfully or not.
type UpstreamCloseObserver interface {
	Interceptor
	OnUpstreamConnectionClose()
}

// Chain is an ordered list of Interceptors. A nil or empty Chain is valid
// and dispatches no-ops.
type Chain []Interceptor

// BeforeUpstreamConnect runs every BeforeUpstreamConnector in order,
// stopping at (and returning) the first error.
func (c Chain) BeforeUpstreamConnect(host string, port int) error {
	for _, i := range c {
		if hook, ok := i.(BeforeUpstreamConnector); ok {
			if err := hook.BeforeUpstreamConnect(host, port); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnUpstreamResponseChunk runs every UpstreamChunkObserver in order.
func (c Chain) OnUpstreamResponseChunk(data []byte) {
	for _, i := range c {
		if hook, ok := i.(UpstreamChunkObserver); ok {
			hook.OnUpstreamResponseChunk(data)
		}
	}
}

// OnUpstreamConnectionClose runs every UpstreamCloseObserver in order.
func (c Chain) OnUpstreamConnectionClose() {
	for _, i := range c {
		if hook, ok := i.(UpstreamCloseObserver); ok {
			hook.OnUpstreamConnectionClose()
		}
	}
}
