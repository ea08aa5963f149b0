package flow

import "strings"

// Callback data is formatted "flow:<kind>:<action>", mirroring the
// scope:action convention used elsewhere in the bot's callbacks.
const callbackScope = "flow"

const (
	actionConfirm = "confirm"
	actionCancel  = "cancel"
)

func callbackData(kind Kind, action string) string {
	return callbackScope + ":" + string(kind) + ":" + action
}

// parseCallback splits callback data into (kind, action).
// ok is false for data that doesn't belong to the flow engine.
func parseCallback(data string) (Kind, string, bool) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 3)
	if len(parts) != 3 || parts[0] != callbackScope {
		return "", "", false
	}
	kind := Kind(parts[1])
	if kind != KindBroadcast && kind != KindReport {
		return "", "", false
	}
	return kind, parts[2], true
}
