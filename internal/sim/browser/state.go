package browser

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/scratchbench/internal/sim"
)

// Stage canvas size the VM's mouse intake is given. Stage coordinates have
// their origin at the centre with y up; canvas coordinates start top-left
// with y down.
const (
	canvasWidth  = 480
	canvasHeight = 360
)

type targetState struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	IsStage     bool           `json:"is_stage"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Direction   float64        `json:"direction"`
	Costume     int            `json:"costume"`
	CostumeName string         `json:"costume_name"`
	Visible     bool           `json:"visible"`
	Ghost       float64        `json:"ghost"`
	Size        float64        `json:"size"`
	Variables   []pageVariable `json:"variables"`
}

type pageVariable struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func (t *targetState) field(f sim.Field) (any, error) {
	switch f {
	case sim.FieldX:
		return t.X, nil
	case sim.FieldY:
		return t.Y, nil
	case sim.FieldDirection:
		return t.Direction, nil
	case sim.FieldCostume:
		return t.Costume, nil
	case sim.FieldCostumeName:
		return t.CostumeName, nil
	case sim.FieldVisible:
		return t.Visible, nil
	case sim.FieldGhost:
		return t.Ghost, nil
	case sim.FieldSize:
		return t.Size, nil
	default:
		return nil, fmt.Errorf("unknown field %q", f)
	}
}

// variables orders scalars before lists, each by name.
func (t *targetState) variables() []sim.Variable {
	out := make([]sim.Variable, 0, len(t.Variables))
	for _, v := range t.Variables {
		kind := sim.KindScalar
		if v.Type == "list" {
			kind = sim.KindList
		}
		out = append(out, sim.Variable{ID: v.ID, Name: v.Name, Kind: kind, Value: v.Value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type pageEvent struct {
	Kind  string  `json:"kind"`
	Actor string  `json:"actor"`
	Text  string  `json:"text"`
	At    float64 `json:"at"`
}

func (e pageEvent) event() sim.Event {
	ev := sim.Event{Kind: sim.EventKind(e.Kind), Actor: e.Actor, Text: e.Text}
	if e.At > 0 {
		ev.At = time.UnixMilli(int64(e.At))
	}
	return ev
}

// stageToCanvas converts stage coordinates to the canvas pixels postIOData
// expects.
func stageToCanvas(x, y float64) (float64, float64) {
	return x + canvasWidth/2, canvasHeight/2 - y
}

// domKeys maps normalized key names whose DOM key value differs.
var domKeys = map[string]string{
	"Space": " ",
}

// ioData builds the postIOData device name and payload for one input event.
func ioData(ev sim.InputEvent) (string, map[string]any, error) {
	switch ev.Device {
	case sim.DeviceKeyboard:
		if ev.Key == "" {
			return "", nil, fmt.Errorf("keyboard event without key")
		}
		key := ev.Key
		if k, ok := domKeys[key]; ok {
			key = k
		}
		return "keyboard", map[string]any{"key": key, "isDown": ev.IsDown}, nil
	case sim.DeviceMouse:
		cx, cy := stageToCanvas(ev.X, ev.Y)
		data := map[string]any{
			"x":            cx,
			"y":            cy,
			"canvasWidth":  canvasWidth,
			"canvasHeight": canvasHeight,
		}
		if !ev.Move {
			data["isDown"] = ev.IsDown
		}
		return "mouse", data, nil
	default:
		return "", nil, fmt.Errorf("unknown input device %q", ev.Device)
	}
}
