package events

import "fmt"

// MethodTopic returns the pub-sub topic a decoded CDP event frame is
// emitted on, keyed by its CDP method name (e.g. "DOM.childNodeInserted").
func MethodTopic(method string) string {
	return fmt.Sprintf("cdp.event.%s", method)
}
