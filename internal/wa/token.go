package wa

import (
	"fmt"
	"strings"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
)

// Selection tokens are the opaque ids carried inside interactive message
// buttons and list rows. They are deterministic functions of their payload so
// re-encoding the same slot always yields the same token, which keeps client
// retransmissions idempotent. The kind prefix lets the decoder dispatch before
// parsing the remainder.

type SelectionKind string

const (
	KindSlot    SelectionKind = "slot"
	KindConfirm SelectionKind = "confirm"
	KindAction  SelectionKind = "action"
)

const (
	prefixSlot    = "slot_"
	prefixConfirm = "confirm_"
	prefixAction  = "action_"

	// WhatsApp caps interactive reply ids at 256 characters.
	maxTokenLen = 256
)

// Action token names understood by the flow controller.
const (
	ActionChangeTime = "change_time"
)

type Selection struct {
	Kind  SelectionKind
	Slot  models.SlotRef // set for KindSlot
	Value string         // booking id for KindConfirm, action name for KindAction
}

// DecodeError reports a token that was not produced by this codec. It is a
// normal error value: malformed client input is expected, never a fault.
type DecodeError struct {
	Token  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid selection token %q: %s", e.Token, e.Reason)
}

func EncodeSlot(ref models.SlotRef) string {
	return fmt.Sprintf("%s%s_%s_%s", prefixSlot, ref.Date, ref.Time, ref.ResourceID)
}

func EncodeConfirm(bookingID string) string {
	return prefixConfirm + bookingID
}

func EncodeAction(name string) string {
	return prefixAction + name
}

// Decode parses a token echoed back by the client. Anything not produced by
// the Encode functions comes back as *DecodeError.
func Decode(raw string) (Selection, error) {
	if raw == "" {
		return Selection{}, &DecodeError{Token: raw, Reason: "empty token"}
	}
	if len(raw) > maxTokenLen {
		return Selection{}, &DecodeError{Token: raw[:32] + "...", Reason: "token too long"}
	}

	switch {
	case strings.HasPrefix(raw, prefixSlot):
		return decodeSlot(raw)
	case strings.HasPrefix(raw, prefixConfirm):
		id := strings.TrimPrefix(raw, prefixConfirm)
		if id == "" {
			return Selection{}, &DecodeError{Token: raw, Reason: "empty booking id"}
		}
		return Selection{Kind: KindConfirm, Value: id}, nil
	case strings.HasPrefix(raw, prefixAction):
		name := strings.TrimPrefix(raw, prefixAction)
		if name == "" {
			return Selection{}, &DecodeError{Token: raw, Reason: "empty action name"}
		}
		return Selection{Kind: KindAction, Value: name}, nil
	default:
		return Selection{}, &DecodeError{Token: raw, Reason: "unknown prefix"}
	}
}

func decodeSlot(raw string) (Selection, error) {
	rest := strings.TrimPrefix(raw, prefixSlot)
	// Resource id goes last so it may itself contain underscores.
	parts := strings.SplitN(rest, "_", 3)
	if len(parts) != 3 {
		return Selection{}, &DecodeError{Token: raw, Reason: "expected date_time_resource payload"}
	}

	date, clock, resource := parts[0], parts[1], parts[2]
	if _, err := time.Parse(models.SlotDateLayout, date); err != nil {
		return Selection{}, &DecodeError{Token: raw, Reason: fmt.Sprintf("bad date %q", date)}
	}
	if _, err := time.Parse(models.SlotTimeLayout, clock); err != nil {
		return Selection{}, &DecodeError{Token: raw, Reason: fmt.Sprintf("bad time %q", clock)}
	}
	if resource == "" {
		return Selection{}, &DecodeError{Token: raw, Reason: "empty resource id"}
	}

	return Selection{
		Kind: KindSlot,
		Slot: models.SlotRef{Date: date, Time: clock, ResourceID: resource},
	}, nil
}
