// Package chanx provides context-aware, goroutine-safe channel utilities.
//
// Plain channels have sharp edges: sends to closed channels panic, blocked
// sends leak goroutines, and combining channels with cancellation needs
// careful select statements. chanx covers the cases lifescope needs:
//
//   - [Send] and [Recv]: send and receive that unblock when the context is
//     done instead of leaking the calling goroutine.
//   - [Closable]: an idempotent-close channel that turns send-after-close
//     into [ErrClosed]; used as the mailbox of lifescope actors.
//   - [Interval] and [Delay]: clock-driven producers whose goroutine ends
//     with the context.
package chanx
