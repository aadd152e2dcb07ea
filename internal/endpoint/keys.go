package endpoint

import "github.com/kwheelans/pass-it-on/internal/notification"

// generateKeySet derives one notification-name key per name under
// master, the common shape behind every endpoint's GenerateKeys.
func generateKeySet(master notification.Key, names []string) []notification.Key {
	keys := make([]notification.Key, 0, len(names))
	for _, name := range names {
		keys = append(keys, notification.Generate(name, master))
	}
	return keys
}
