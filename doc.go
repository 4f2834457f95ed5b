// Package netagents simulates distributed-protocol participants, *agents*,
// which only talk to each other through directed, point-to-point endpoints.
// It lets you prototype and test a network protocol without a real transport.
//
// ## How it works
//
// A `Simulation` plays the orchestrator. You declare agents with
// `Simulation.AddAgent`, each one gets a `UniqueID` and an inbound endpoint
// nobody else can read. `Simulation.Link` then gives an agent an outbound
// endpoint bound to exactly one peer. Agents never reference each other:
// everything flows through those endpoints.
//
// `Simulation.Run` constructs every agent through its `Factory` (malformed
// configuration is rejected there, before anything runs) and schedules all
// of them concurrently, one goroutine each.
//
// Endpoints are bounded FIFOs built on `flow.Local`:
//
// * Messages from one sender on one endpoint arrive in send order.
// * A full endpoint holds the sender back (backpressure).
// * An inbound endpoint closes once every agent linked to it returned. The
// owner still drains what was buffered, then sees `ErrEndpointClosed`.
//
// Every suspension point (receive, send, timer) observes the `context.Context`
// given to `Agent.Run`, so a simulation can always be shut down.
//
// ## Agent kinds
//
// Two reference kinds are registered in `DefaultRegistry`:
//
// * `echo` logs whatever it receives and stops when its inbound endpoint
// closes. A message for another agent aborts it with a `*RoutingError`.
// * `ping` sends "Hello #<n> from Ping agent <id>" to its `target` every
// `interval` milliseconds, until cancelled or the target goes away.
//
// New kinds only need a `Factory` registered on a `Registry`.
//
// ## Observability
//
// Logs go through `log/slog`, metrics through
// [`hashicorp/go-metrics`][dep-met], and every message crossing an endpoint
// can be traced with a `Recorder` (see the `pkg/trace` package).
//
// [dep-met]: https://pkg.go.dev/github.com/hashicorp/go-metrics
package netagents
