package botkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoArguments = errors.New("command arguments are empty")

// ParseJSON разбирает аргументы команды как json объект, например
// /addsource {"name": "e27", "url": "https://e27.co/feed/"}
func ParseJSON[T any](src string) (T, error) {
	var args T

	src = strings.TrimSpace(src)
	if src == "" {
		return args, ErrNoArguments
	}

	if err := json.Unmarshal([]byte(src), &args); err != nil {
		return args, fmt.Errorf("parse command arguments: %w", err)
	}

	return args, nil
}
