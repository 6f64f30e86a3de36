package session

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration.
// These must remain untyped string constants for statekit.StateID compatibility.
const (
	StatusIdle    = "idle"
	StatusLoading = "loading"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Machine events.
const (
	eventSubmit  = "submit"
	eventReject  = "reject"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

type machineContext struct {
	Policy OverlapPolicy
}

// machine holds the legal status transitions of a session. Idle is only
// ever the initial state.
type machine struct {
	interpreter *statekit.Interpreter[machineContext]
}

func newMachine(policy OverlapPolicy) (*machine, error) {
	builder := statekit.NewMachine[machineContext]("grader-session").
		WithInitial(statekit.StateID(StatusIdle)).
		WithContext(machineContext{Policy: policy}).
		WithGuard("canSupersede", func(ctx machineContext, e statekit.Event) bool {
			return ctx.Policy == OverlapSupersede
		})

	builder.State(StatusIdle).
		On(eventSubmit).Target(StatusLoading).
		On(eventReject).Target(StatusError).
		Done()

	builder.State(StatusLoading).
		On(eventSucceed).Target(StatusSuccess).
		On(eventFail).Target(StatusError).
		On(eventSubmit).Target(StatusLoading).Guard("canSupersede").
		On(eventReject).Target(StatusError).Guard("canSupersede").
		Done()

	builder.State(StatusSuccess).
		On(eventSubmit).Target(StatusLoading).
		On(eventReject).Target(StatusError).
		Done()

	builder.State(StatusError).
		On(eventSubmit).Target(StatusLoading).
		On(eventReject).Target(StatusError).
		Done()

	m, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build session state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(m)
	interpreter.Start()

	return &machine{interpreter: interpreter}, nil
}

// fire sends event and checks that the machine landed on target.
func (m *machine) fire(event string, target string) error {
	before := m.current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if after := m.current(); after != target {
		return fmt.Errorf("event %q is not allowed in state %q", event, before)
	}
	return nil
}

func (m *machine) current() string {
	return string(m.interpreter.State().Value)
}
