package wa

// Outbound message payloads mirror the WhatsApp Cloud API wire format. The
// field-length limits below are the transport's documented caps; the card
// builder guarantees no outbound payload exceeds them.

const (
	MaxBodyLen         = 1024
	MaxHeaderLen       = 60
	MaxFooterLen       = 60
	MaxButtonTitleLen  = 20
	MaxListButtonLen   = 20
	MaxSectionTitleLen = 24
	MaxRowTitleLen     = 24
	MaxRowDescLen      = 72

	MaxReplyButtons = 3
	MaxListRows     = 10
)

type OutboundMessage struct {
	Type        string       `json:"type"` // "text" or "interactive"
	Text        *Text        `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Interactive struct {
	Type   string  `json:"type"` // "button" or "list"
	Header *Header `json:"header,omitempty"`
	Body   Body    `json:"body"`
	Footer *Footer `json:"footer,omitempty"`
	Action Action  `json:"action"`
}

type Header struct {
	Type string `json:"type"` // always "text" here
	Text string `json:"text"`
}

type Body struct {
	Text string `json:"text"`
}

type Footer struct {
	Text string `json:"text"`
}

type Action struct {
	Buttons  []Button  `json:"buttons,omitempty"`
	Button   string    `json:"button,omitempty"` // list menu label
	Sections []Section `json:"sections,omitempty"`
}

type Button struct {
	Type  string `json:"type"` // always "reply"
	Reply Reply  `json:"reply"`
}

type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// NewText wraps plain body text, truncated to the transport limit.
func NewText(body string) *OutboundMessage {
	return &OutboundMessage{Type: "text", Text: &Text{Body: truncate(body, MaxBodyLen)}}
}

// truncate cuts s to at most limit runes, appending an ellipsis when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}
