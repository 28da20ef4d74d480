package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCallbackData splits inline button data of the form "action:message_id".
func ParseCallbackData(data string) (string, int, error) {
	action, idStr, ok := strings.Cut(data, ":")
	if !ok || action == "" {
		return "", 0, fmt.Errorf("invalid callback data %q", data)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid message ID in callback data %q", data)
	}
	return action, id, nil
}
