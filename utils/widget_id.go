package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateWidgetID returns a new widget identifier using a stable wgt_ prefix
// followed by the lowercase UUID without dashes. The prefix makes widget ids
// recognisable in embed snippets and local storage keys.
func GenerateWidgetID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "wgt_" + id
}
