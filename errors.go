package netagents

import (
	"errors"
	"fmt"

	"github.com/raskyld/netagents/pkg/flow"
)

var (
	ErrInvalidID    = errors.New("agent: invalid unique id")
	ErrIDConflict   = errors.New("agent: unique id already assigned")
	ErrInvalidFrame = errors.New("agent: invalid message frame")
	ErrMissingAttr  = errors.New("agent: missing required attribute")
	ErrInvalidAttr  = errors.New("agent: invalid attribute")
	ErrNotLinked    = errors.New("agent: no outbound endpoint bound to peer")

	// ErrRoutingViolation means a message reached an agent it was not
	// addressed to: the orchestrator wired something wrong.
	ErrRoutingViolation = errors.New("agent: message delivered to the wrong destination")

	// ErrSendFailed is fatal for the sender, the peer will never accept
	// messages again.
	ErrSendFailed = errors.New("agent: send failed")

	ErrInvalidCfg        = errors.New("simulation: invalid configuration")
	ErrNameInvalid       = errors.New("simulation: names must only contain alphanum, dashes, dots and be at most 128 chars")
	ErrNameConflict      = errors.New("simulation: agent name conflict")
	ErrNameResolution    = errors.New("simulation: agent does not exist")
	ErrUnknownKind       = errors.New("simulation: unknown agent kind")
	ErrLinkConflict      = errors.New("simulation: link already exists")
	ErrAlreadyStarted    = errors.New("simulation: already started")
	ErrSimulationStopped = errors.New("simulation: stopped")
)

// ErrEndpointClosed is returned by endpoints once they will never carry a
// message again. It is the normal termination signal for passive agents.
var ErrEndpointClosed = flow.ErrFlowClosed

// RoutingError carries the offending message of a routing violation.
type RoutingError struct {
	Agent UniqueID
	Msg   NetworkMessage
}

func (err *RoutingError) Error() string {
	return fmt.Sprintf(
		"%s: agent %s received a message for %s from %s",
		ErrRoutingViolation, err.Agent, err.Msg.Dst, err.Msg.Src,
	)
}

func (err *RoutingError) Unwrap() error {
	return ErrRoutingViolation
}
