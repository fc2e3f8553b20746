package runner

// modelIDs maps the UI's logical model tags to concrete worker CLI model ids.
var modelIDs = map[string]string{
	"opus":   "claude-opus-4-6",
	"sonnet": "claude-sonnet-4-5-20250929",
	"haiku":  "claude-haiku-4-5-20251001",
	"claude": "claude-opus-4-6",
}

// fallbackModelID is used when the producer sent an unrecognized tag.
const fallbackModelID = "claude-sonnet-4-20250514"

// ModelID resolves a logical model tag to the id passed to the worker CLI.
func ModelID(model string) string {
	if id, ok := modelIDs[model]; ok {
		return id
	}
	return fallbackModelID
}
