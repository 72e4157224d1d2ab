package notify

// Interactive card payloads for the webhook channel. Elements are
// heterogeneous, so they marshal as small tagged structs collected
// behind an any slice.

type payload struct {
	Timestamp string            `json:"timestamp,omitempty"`
	Sign      string            `json:"sign,omitempty"`
	MsgType   string            `json:"msg_type"`
	Card      *card             `json:"card,omitempty"`
	Content   map[string]string `json:"content,omitempty"`
}

type card struct {
	Header   cardHeader `json:"header"`
	Elements []any      `json:"elements"`
}

type cardHeader struct {
	Title    plainText `json:"title"`
	Template string    `json:"template"`
}

type plainText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type markdownText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type divElement struct {
	Tag  string       `json:"tag"`
	Text markdownText `json:"text"`
}

type hrElement struct {
	Tag string `json:"tag"`
}

type actionElement struct {
	Tag     string   `json:"tag"`
	Actions []button `json:"actions"`
}

type button struct {
	Tag  string    `json:"tag"`
	Text plainText `json:"text"`
	URL  string    `json:"url"`
	Type string    `json:"type"`
}

type noteElement struct {
	Tag      string      `json:"tag"`
	Elements []plainText `json:"elements"`
}

func plain(content string) plainText {
	return plainText{Tag: "plain_text", Content: content}
}

func markdownDiv(content string) divElement {
	return divElement{Tag: "div", Text: markdownText{Tag: "lark_md", Content: content}}
}

func divider() hrElement {
	return hrElement{Tag: "hr"}
}

func linkButton(label, url, style string) button {
	return button{Tag: "button", Text: plain(label), URL: url, Type: style}
}

func textPayload(message string) payload {
	return payload{MsgType: "text", Content: map[string]string{"text": message}}
}

func cardPayload(title, template string, elements ...any) payload {
	return payload{
		MsgType: "interactive",
		Card: &card{
			Header:   cardHeader{Title: plain(title), Template: template},
			Elements: elements,
		},
	}
}
