package wa

import (
	"errors"
	"fmt"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
)

var (
	// ErrNoSlots and ErrTooManySlots are caller errors: the flow must narrow
	// the query or paginate before asking for a card.
	ErrNoSlots      = errors.New("no slots to present")
	ErrTooManySlots = errors.New("too many slots for one interactive message")
)

const preferredMark = "⭐ "

// Builder renders candidate slots and booking confirmations as WhatsApp
// interactive messages. It owns the button-vs-list format decision and
// guarantees every text field respects the transport limits.
type Builder struct {
	resourceNames map[string]string
	loc           *time.Location
}

func NewBuilder(resources []models.Resource, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	names := make(map[string]string, len(resources))
	for _, r := range resources {
		names[r.ID] = r.DisplayName
	}
	return &Builder{resourceNames: names, loc: loc}
}

// BuildSlotSelection renders 1-3 slots as reply buttons and 4-10 as a list
// message sectioned by calendar day.
func (b *Builder) BuildSlotSelection(slots []models.TimeSlot, lang string) (*OutboundMessage, error) {
	return b.buildSelection(slots, lang, ForLanguage(lang).SelectBody)
}

// BuildReofferedSlots is BuildSlotSelection with a "that time was taken"
// intro, used after a booking conflict.
func (b *Builder) BuildReofferedSlots(slots []models.TimeSlot, lang string) (*OutboundMessage, error) {
	return b.buildSelection(slots, lang, ForLanguage(lang).SlotTaken)
}

func (b *Builder) buildSelection(slots []models.TimeSlot, lang, intro string) (*OutboundMessage, error) {
	if len(slots) == 0 {
		return nil, ErrNoSlots
	}
	if len(slots) > MaxListRows {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManySlots, len(slots), MaxListRows)
	}

	locale := ForLanguage(lang)
	if len(slots) <= MaxReplyButtons {
		return b.buildButtons(slots, locale, intro)
	}
	return b.buildList(slots, locale, intro)
}

func (b *Builder) buildButtons(slots []models.TimeSlot, locale Locale, intro string) (*OutboundMessage, error) {
	buttons := make([]Button, 0, len(slots))
	for _, slot := range slots {
		start, err := slot.Start(b.loc)
		if err != nil {
			return nil, err
		}
		title := fmt.Sprintf("%s %s", locale.FormatShortDate(start), locale.FormatTime(start))
		if slot.IsPreferred {
			title = preferredMark + title
		}
		buttons = append(buttons, Button{
			Type:  "reply",
			Reply: Reply{ID: EncodeSlot(slot.Ref()), Title: truncate(title, MaxButtonTitleLen)},
		})
	}

	return &OutboundMessage{
		Type: "interactive",
		Interactive: &Interactive{
			Type:   "button",
			Body:   Body{Text: truncate(intro, MaxBodyLen)},
			Action: Action{Buttons: buttons},
		},
	}, nil
}

func (b *Builder) buildList(slots []models.TimeSlot, locale Locale, intro string) (*OutboundMessage, error) {
	var sections []Section
	sectionIdx := make(map[string]int)

	for _, slot := range slots {
		start, err := slot.Start(b.loc)
		if err != nil {
			return nil, err
		}

		day := slot.Date
		idx, ok := sectionIdx[day]
		if !ok {
			idx = len(sections)
			sectionIdx[day] = idx
			sections = append(sections, Section{
				Title: truncate(locale.FormatDay(start), MaxSectionTitleLen),
			})
		}

		title := locale.FormatTime(start)
		if slot.IsPreferred {
			title = preferredMark + title
		}
		sections[idx].Rows = append(sections[idx].Rows, Row{
			ID:          EncodeSlot(slot.Ref()),
			Title:       truncate(title, MaxRowTitleLen),
			Description: truncate(b.rowDescription(slot), MaxRowDescLen),
		})
	}

	return &OutboundMessage{
		Type: "interactive",
		Interactive: &Interactive{
			Type: "list",
			Body: Body{Text: truncate(intro, MaxBodyLen)},
			Action: Action{
				Button:   truncate(locale.ListButton, MaxListButtonLen),
				Sections: sections,
			},
		},
	}, nil
}

func (b *Builder) rowDescription(slot models.TimeSlot) string {
	desc := b.resourceNames[slot.ResourceID]
	if desc == "" {
		desc = slot.ResourceID
	}
	if slot.DurationMinutes > 0 {
		desc = fmt.Sprintf("%s · %d min", desc, slot.DurationMinutes)
	}
	if slot.Price > 0 {
		desc = fmt.Sprintf("%s · %.2f", desc, slot.Price)
	}
	return desc
}

// BuildConfirmation renders the post-booking message with the shareable code
// and the confirm / change-time reply buttons.
func (b *Builder) BuildConfirmation(booking *models.Booking, svc *models.Service, lang string) *OutboundMessage {
	locale := ForLanguage(lang)

	serviceName := booking.ServiceID
	if svc != nil && svc.Name != "" {
		serviceName = svc.Name
	}
	resourceName := b.resourceNames[booking.ResourceID]
	if resourceName == "" {
		resourceName = booking.ResourceID
	}

	start := booking.StartAt.In(b.loc)
	body := fmt.Sprintf("✅ %s\n📅 %s, %s\n👤 %s\n%s %s\n\n%s",
		serviceName,
		locale.FormatDay(start),
		locale.FormatTime(start),
		resourceName,
		locale.CodeLabel,
		booking.Code,
		locale.ConfirmPrompt,
	)

	return &OutboundMessage{
		Type: "interactive",
		Interactive: &Interactive{
			Type: "button",
			Body: Body{Text: truncate(body, MaxBodyLen)},
			Action: Action{Buttons: []Button{
				{Type: "reply", Reply: Reply{
					ID:    EncodeConfirm(booking.ID),
					Title: truncate(locale.ConfirmButton, MaxButtonTitleLen),
				}},
				{Type: "reply", Reply: Reply{
					ID:    EncodeAction(ActionChangeTime),
					Title: truncate(locale.ChangeButton, MaxButtonTitleLen),
				}},
			}},
		},
	}
}
