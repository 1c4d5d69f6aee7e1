package llm

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
)

// Fingerprint derives a cache key from a request type and its semantic
// payload: md5 over canonically ordered JSON. Not a security digest.
func Fingerprint(requestType string, payload any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%s:%x", requestType, md5.Sum([]byte(fmt.Sprint(payload))))
	}

	// Round-trip through a map so object keys are sorted regardless of the
	// payload's Go field order.
	var v interface{}
	if err := json.Unmarshal(raw, &v); err == nil {
		if canonical, err := json.Marshal(v); err == nil {
			raw = canonical
		}
	}

	return fmt.Sprintf("%s:%x", requestType, md5.Sum(raw))
}
