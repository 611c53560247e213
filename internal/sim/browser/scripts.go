package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// vmReady is true once the GUI has attached its VM.
const vmReady = `!!(window.vm && window.vm.runtime)`

// installQueue hooks the runtime's SAY and QUESTION events into
// window.__scratchbenchEvents. Installing twice is a no-op.
const installQueue = `(function () {
  if (window.__scratchbenchEvents) return true;
  window.__scratchbenchEvents = [];
  const push = (kind, actor, text) => window.__scratchbenchEvents.push({
    kind: kind, actor: actor || "", text: String(text == null ? "" : text), at: Date.now()
  });
  window.vm.runtime.on("SAY", (target, type, text) => {
    if (text === "" || text == null) return;
    push("say", target && !target.isStage ? target.getName() : "", text);
  });
  window.vm.runtime.on("QUESTION", (question) => {
    if (question == null) return;
    push("question", "", question);
  });
  return true;
})()`

// drainQueue returns and clears the queued events.
const drainQueue = `(function () {
  const q = window.__scratchbenchEvents || [];
  window.__scratchbenchEvents = [];
  return q;
})()`

const listActors = `window.vm.runtime.targets
  .filter((t) => t.isOriginal)
  .map((t) => ({ id: t.id, name: t.isStage ? "Stage" : t.getName(), is_stage: !!t.isStage }))`

// readTarget returns the full state of one target, or null once it is gone.
const readTarget = `function (id) {
  const t = window.vm.runtime.getTargetById(id);
  if (!t) return null;
  const costumes = t.getCostumes ? t.getCostumes() : [];
  const costume = costumes[t.currentCostume];
  const variables = Object.values(t.variables || {})
    .filter((v) => v.type === "" || v.type === "list")
    .map((v) => ({ id: v.id, name: v.name, type: v.type, value: v.value }));
  return {
    id: t.id,
    name: t.isStage ? "Stage" : t.getName(),
    is_stage: !!t.isStage,
    x: t.x,
    y: t.y,
    direction: t.direction,
    costume: t.currentCostume,
    costume_name: costume ? costume.name : "",
    visible: !!t.visible,
    ghost: (t.effects && t.effects.ghost) || 0,
    size: t.size,
    variables: variables
  };
}`

const postIO = `function (device, data) {
  window.vm.postIOData(device, data);
  return true;
}`

// answer emits ANSWER and records it in the event queue, since the runtime
// does not re-emit answers it receives.
const answer = `function (text) {
  window.vm.runtime.emit("ANSWER", text);
  if (window.__scratchbenchEvents) {
    window.__scratchbenchEvents.push({ kind: "answer", actor: "", text: text, at: Date.now() });
  }
  return true;
}`

const greenFlag = `(window.vm.greenFlag(), true)`

const stopAll = `(window.vm.stopAll(), true)`

// call renders fn applied to JSON-encoded args as an expression.
func call(fn string, args ...any) (string, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encode argument %d: %w", i, err)
		}
		encoded[i] = string(b)
	}
	return fmt.Sprintf("(%s)(%s)", fn, strings.Join(encoded, ", ")), nil
}
