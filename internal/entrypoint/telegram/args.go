package telegram

import "strings"

// firstArg returns the first word of command arguments, so that
// "/buy 0xabc extra" yields "0xabc".
func firstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
