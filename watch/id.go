package watch

import "github.com/google/uuid"

func generateIDWithPrefix(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}
