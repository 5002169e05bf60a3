package normalization

import (
	"encoding/json"
	"maps"
	"regexp"
	"slices"
	"time"

	"github.com/yungbote/navrelay/internal/domain/navigation"
	"github.com/yungbote/navrelay/internal/platform/apierr"
)

const MaxIDLength = 128

const (
	fieldRemID          = "remId"
	fieldStrength       = "strength"
	fieldUserID         = "userId"
	fieldSourceClientID = "sourceClientId"
	fieldSentAt         = "sentAt"
)

var (
	safeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	allowedFields = map[string]struct{}{
		fieldRemID:          {},
		fieldStrength:       {},
		fieldUserID:         {},
		fieldSourceClientID: {},
		fieldSentAt:         {},
	}

	sentAtLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02",
	}
)

// UpdateOptions controls tenant handling. In multi-tenant mode userId is
// required; otherwise it is validated when present and left to the caller.
type UpdateOptions struct {
	RequireUserID bool
}

// IsSafeID reports whether s can be used as a remId, userId or sourceClientId.
func IsSafeID(s string) bool {
	return len(s) > 0 && len(s) <= MaxIDLength && safeIDPattern.MatchString(s)
}

// ValidateUpdate checks a JSON body against the update contract.
// The first failing rule wins.
func ValidateUpdate(raw []byte, opts UpdateOptions) (navigation.Update, *apierr.Error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return navigation.Update{}, apierr.Newf(apierr.CodeInvalidJSON, "body is not valid JSON")
	}
	payload, ok := decoded.(map[string]any)
	if !ok {
		return navigation.Update{}, apierr.Newf(apierr.CodeInvalidPayload, "payload must be a JSON object")
	}

	for _, key := range slices.Sorted(maps.Keys(payload)) {
		if _, known := allowedFields[key]; !known {
			return navigation.Update{}, apierr.Newf(apierr.CodeInvalidPayload, "unknown field %q", key)
		}
	}

	var out navigation.Update

	remID, ok := payload[fieldRemID].(string)
	if !ok || !IsSafeID(remID) {
		return navigation.Update{}, invalidField(fieldRemID, "must be a safe id")
	}
	out.RemID = remID

	strength, ok := payload[fieldStrength].(string)
	if !ok || !navigation.Strength(strength).Valid() {
		return navigation.Update{}, invalidField(fieldStrength, `must be "strong" or "weak"`)
	}
	out.Strength = navigation.Strength(strength)

	if rawUser, present := payload[fieldUserID]; present || opts.RequireUserID {
		userID, ok := rawUser.(string)
		if !ok || !IsSafeID(userID) {
			return navigation.Update{}, invalidField(fieldUserID, "must be a safe id")
		}
		out.UserID = userID
	}

	sourceClientID, ok := payload[fieldSourceClientID].(string)
	if !ok || !IsSafeID(sourceClientID) {
		return navigation.Update{}, invalidField(fieldSourceClientID, "must be a safe id")
	}
	out.SourceClientID = sourceClientID

	if rawSentAt, present := payload[fieldSentAt]; present {
		s, ok := rawSentAt.(string)
		if !ok {
			return navigation.Update{}, invalidField(fieldSentAt, "must be a timestamp string")
		}
		sentAt, ok := ParseTimestamp(s)
		if !ok {
			return navigation.Update{}, invalidField(fieldSentAt, "must be a timestamp string")
		}
		out.SentAt = &sentAt
	}

	return out, nil
}

// ParseTimestamp accepts RFC 3339 (with or without fractional seconds) and
// plain dates.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range sentAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func invalidField(field, reason string) *apierr.Error {
	return apierr.Newf(apierr.CodeInvalidField, "%s %s", field, reason)
}
