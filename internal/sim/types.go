package sim

import (
	"context"
	"time"
)

// Actor identifies a target in the simulation: a sprite or the stage.
type Actor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsStage bool   `json:"is_stage"`
}

// Field names a readable property of an actor.
type Field string

// Readable actor fields.
const (
	FieldX           Field = "x"
	FieldY           Field = "y"
	FieldDirection   Field = "direction"
	FieldCostume     Field = "costume"      // zero-based costume index
	FieldCostumeName Field = "costume_name" // display name of the current costume
	FieldVisible     Field = "visible"
	FieldGhost       Field = "ghost" // ghost (transparency) effect, 0..100
	FieldSize        Field = "size"
)

// VariableKind distinguishes scalar variables from lists.
type VariableKind string

const (
	KindScalar VariableKind = ""
	KindList   VariableKind = "list"
)

// Variable is one variable declared on an actor (or on the stage, which holds
// the global scope).
type Variable struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Kind  VariableKind `json:"kind,omitempty"`
	Value any          `json:"value"`
}

// EventKind names a simulation event stream.
type EventKind string

const (
	// EventSay is emitted when an actor says or thinks text.
	EventSay EventKind = "say"
	// EventQuestion is emitted when an actor asks a question and waits.
	EventQuestion EventKind = "question"
	// EventAnswer is emitted when a pending question is answered.
	EventAnswer EventKind = "answer"
)

// Event is one emitted simulation event.
type Event struct {
	Kind  EventKind `json:"kind"`
	Actor string    `json:"actor,omitempty"` // actor name, empty for stage/global
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Handler receives events. Handlers are invoked on the simulation's goroutine
// and must not block.
type Handler func(Event)

// SubscriptionID identifies a registered handler for Unsubscribe.
type SubscriptionID uint64

// Device names an input device of the simulation's IO intake.
type Device string

const (
	DeviceKeyboard Device = "keyboard"
	DeviceMouse    Device = "mouse"
	// DeviceAnswer delivers the text typed into a pending question prompt.
	DeviceAnswer Device = "answer"
)

// InputEvent is one discrete event posted into the simulation's IO intake.
// Key/IsDown apply to the keyboard, X/Y/IsDown to the mouse (stage
// coordinates, origin at the centre), Text to answers. A mouse event with
// Move set only repositions the pointer and carries no button transition.
type InputEvent struct {
	Device Device  `json:"device"`
	Key    string  `json:"key,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	IsDown bool    `json:"is_down,omitempty"`
	Move   bool    `json:"move,omitempty"`
	Text   string  `json:"text,omitempty"`
}

// Handle is the narrow set of operations the harness consumes from the
// simulation.
type Handle interface {
	// Start begins all running behavior (the green flag).
	Start(ctx context.Context) error

	// Stop halts all running behavior.
	Stop(ctx context.Context) error

	// Actors lists every target currently present, stage included.
	Actors(ctx context.Context) ([]Actor, error)

	// ReadField reads one field of an actor. Reading a field of an actor
	// that no longer exists returns a *NotFoundError.
	ReadField(ctx context.Context, actor Actor, field Field) (any, error)

	// Variables lists the variables and lists declared on an actor.
	Variables(ctx context.Context, actor Actor) ([]Variable, error)

	// Subscribe registers h for events of the given kind.
	Subscribe(kind EventKind, h Handler) (SubscriptionID, error)

	// Unsubscribe removes a handler registered with Subscribe. Removing an
	// unknown id is a no-op.
	Unsubscribe(kind EventKind, id SubscriptionID) error

	// PostInput posts one event into the simulation's IO intake.
	PostInput(ctx context.Context, ev InputEvent) error
}
