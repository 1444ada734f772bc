package lifetime

import (
	"sync"

	"github.com/baxromumarov/lifescope"
)

// Host owns a [Registry] and the scope bound to its terminal event. Embed
// or hold one in any object with a lifetime, such as a screen, a session
// or a view model, and drive it with Dispatch.
type Host struct {
	reg       *Registry
	scopeOpts []lifescope.Option

	once  sync.Once
	scope *lifescope.Scope
}

// NewHost creates a host named name. scopeOpts configure the lifetime
// scope returned by [Host.Scope].
func NewHost(name string, scopeOpts ...lifescope.Option) *Host {
	return NewHostWith(NewRegistry(WithName(name)), scopeOpts...)
}

// NewHostWith creates a host around an existing registry.
func NewHostWith(reg *Registry, scopeOpts ...lifescope.Option) *Host {
	return &Host{
		reg:       reg,
		scopeOpts: append([]lifescope.Option{lifescope.WithName(reg.name)}, scopeOpts...),
	}
}

// Lifetime returns the host's registry.
func (h *Host) Lifetime() *Registry {
	return h.reg
}

// Dispatch delivers ev to the host's lifetime.
func (h *Host) Dispatch(ev Event) error {
	return h.reg.Dispatch(ev)
}

// Scope returns the host's lifetime scope, created on first use and
// cancelled at the terminal event. Once the host has terminated the scope
// is cancelled, so everything launched on it finishes as cancelled.
func (h *Host) Scope() *lifescope.Scope {
	h.once.Do(func() {
		// The terminal event never opens a phase, so NewScope cannot fail.
		h.scope, _ = NewScope(h.reg, h.reg.Terminal(), h.scopeOpts...)
	})
	return h.scope
}

// Launch launches fn on the host's lifetime scope.
func (h *Host) Launch(name string, fn lifescope.TaskFunc, opts ...lifescope.LaunchOption) *lifescope.Job {
	return h.Scope().Launch(name, fn, opts...)
}

// Bind binds c to the host's lifetime.
func (h *Host) Bind(c lifescope.Cancelable, opts ...BindOption) *Binding {
	return Bind(h.reg, c, opts...)
}
