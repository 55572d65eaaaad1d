package agent

// TurnState is the position of a raw-path round in its state machine.
//
//	Idle -> AwaitingModel -> Idle                          (plain reply)
//	Idle -> AwaitingModel -> ToolRequested -> ExecutingTool
//	     -> AwaitingModelFinal -> Idle                     (one tool call)
//
// A transport failure in either Awaiting state returns to Idle with nothing
// committed.
type TurnState int

const (
	StateIdle TurnState = iota
	StateAwaitingModel
	StateToolRequested
	StateExecutingTool
	StateAwaitingModelFinal
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolRequested:
		return "tool_requested"
	case StateExecutingTool:
		return "executing_tool"
	case StateAwaitingModelFinal:
		return "awaiting_model_final"
	default:
		return "unknown"
	}
}
