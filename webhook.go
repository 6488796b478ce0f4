package newsletter

import (
	"encoding/json"
	"strings"

	"github.com/coregx/newsletter/model"
)

// SuppressionEvent is one normalized bounce-style event extracted from an
// inbound webhook payload. Events reach the lifecycle core only in this
// typed form; payload-shape handling stays at the boundary.
type SuppressionEvent struct {
	Email  string
	Reason model.SuppressionReason
}

// postmarkEvent mirrors the fields of a Postmark webhook record we care
// about. Postmark posts a single object for most record types and an array
// for batched deliveries.
type postmarkEvent struct {
	RecordType string `json:"RecordType"`
	Email      string `json:"Email"`
}

// recordTypeReasons maps lower-cased Postmark record types onto suppression
// reasons. Record types outside this map carry no suppression signal.
var recordTypeReasons = map[string]model.SuppressionReason{
	"bounce":             model.ReasonBounce,
	"spamcomplaint":      model.ReasonSpamComplaint,
	"subscriptionchange": model.ReasonSubscriptionChange,
}

// ExtractSuppressionEvents normalizes a webhook body into suppression events.
// The body may hold a single JSON object or an array of objects; both shapes
// produce the same flat event sequence. Records with an unknown type or a
// missing email are skipped, and skipped counts how many were dropped.
//
// A malformed body returns ErrTokenInvalid-style failure as a validation
// error; it never panics past the boundary.
func ExtractSuppressionEvents(body []byte) (events []SuppressionEvent, skipped int, err error) {
	var records []postmarkEvent

	var single postmarkEvent
	if jsonErr := json.Unmarshal(body, &single); jsonErr == nil {
		records = []postmarkEvent{single}
	} else {
		var many []postmarkEvent
		if jsonErr := json.Unmarshal(body, &many); jsonErr != nil {
			return nil, 0, NewErrorWithCause(ErrCodeValidation, "invalid webhook payload", jsonErr)
		}
		records = many
	}

	for _, rec := range records {
		email := model.NormalizeEmail(rec.Email)
		if email == "" {
			skipped++
			continue
		}
		reason, ok := recordTypeReasons[strings.ToLower(rec.RecordType)]
		if !ok {
			skipped++
			continue
		}
		events = append(events, SuppressionEvent{Email: email, Reason: reason})
	}

	return events, skipped, nil
}
