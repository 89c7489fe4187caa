// Widget session state machine. Tracks the lifecycle of one hosted-payment
// form from script load through the asynchronous success/error callbacks.
package hpp

import (
	"context"
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// Widget session states.
const (
	// StateUnloaded is the initial state before the widget script is loaded.
	StateUnloaded = "unloaded"

	// StateScriptLoading means the process-wide widget bootstrap is in flight.
	StateScriptLoading = "script_loading"

	// StateReady means the widget can be instantiated. Reached directly from
	// unloaded when a prior session already completed the bootstrap.
	StateReady = "ready"

	// StateAwaitingCallback means the widget owns its internal UI and the
	// bridge is waiting for the success or error callback.
	StateAwaitingCallback = "awaiting_callback"

	// StatePostProcessing means the success callback fired and backend
	// provisioning is running. Entering this state is the at-most-once
	// guard: a second success callback cannot transition into it.
	StatePostProcessing = "post_processing"

	// StateCompleted means provisioning finished and the session is done
	// (terminal).
	StateCompleted = "completed"

	// StateFailed means the script failed to load, or provisioning failed
	// after a captured payment (terminal, surfaced to the user).
	StateFailed = "failed"
)

// WidgetTransitions defines the valid state transitions for a widget session.
var WidgetTransitions = map[string][]string{
	StateUnloaded:      {StateScriptLoading, StateReady},
	StateScriptLoading: {StateReady, StateFailed},
	StateReady:         {StateAwaitingCallback},
	// Error callback returns to ready, permitting a retry render.
	StateAwaitingCallback: {StatePostProcessing, StateReady},
	StatePostProcessing:   {StateCompleted, StateFailed},
	StateCompleted:        {},
	StateFailed:           {},
}

// Machine is the subset of the finite state machine the bridge uses. The
// interface keeps the bridge testable against a fake machine.
type Machine interface {
	// Transition attempts to transition the state machine to the specified state.
	Transition(state string) error

	// TransitionIfCurrentState transitions only when the machine is in the
	// expected current state, atomically.
	TransitionIfCurrentState(currentState, newState string) error

	// GetState returns the current state of the state machine.
	GetState() string

	// GetStateChan returns a channel that emits the state whenever it
	// changes. The channel is closed when the context is canceled.
	GetStateChan(ctx context.Context) <-chan string
}

// NewMachine creates a widget session state machine starting at unloaded.
func NewMachine(handler slog.Handler) (Machine, error) {
	return fsm.New(handler, StateUnloaded, WidgetTransitions)
}
