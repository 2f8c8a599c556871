package gate

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const (
	DefaultSenderName = "Someone"
	DefaultGroupID    = "default"

	senderTypeBot = "bot"
)

// Reason причина, по которой событие пропущено.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonMalformed Reason = "empty/non-JSON payload"
	ReasonBot       Reason = "bot message"
	ReasonEmpty     Reason = "empty message"
)

// Event — поля входящего вебхука, которые нам нужны.
type Event struct {
	SenderType string
	Name       string
	Text       string
	GroupID    string
}

// Action — решение по событию. При Respond=false заполнен только Reason.
type Action struct {
	Respond    bool
	Reason     Reason
	GroupID    string
	SenderName string
	Text       string
}

// Ignore возвращает решение пропустить событие по причине r.
func Ignore(r Reason) Action { return Action{Reason: r} }

// Parse разбирает тело вебхука. ok=false для пустого тела, не-JSON или пустого объекта.
func Parse(body []byte) (ev Event, ok bool) {
	raw, err := decodeObject(body)
	if err != nil || len(raw) == 0 {
		return Event{}, false
	}
	return Event{
		SenderType: field(raw, "sender_type"),
		Name:       field(raw, "name"),
		Text:       field(raw, "text"),
		GroupID:    field(raw, "group_id"),
	}, true
}

// decodeObject читает ровно один JSON-объект. Числа остаются json.Number,
// чтобы длинные id не теряли точность на float64.
func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON object")
	}
	return raw, nil
}

// field возвращает строковое значение; числовые id приводятся к строке как есть, остальное — пусто.
func field(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Classify разбирает тело и решает, нужен ли ответ.
func Classify(body []byte) Action {
	ev, ok := Parse(body)
	if !ok {
		return Ignore(ReasonMalformed)
	}
	return Decide(ev)
}

// Decide — порядок проверок важен: бот, затем пустой текст.
// Сообщения ботов (включая наши собственные ответы) никогда не доходят до модели.
func Decide(ev Event) Action {
	if ev.SenderType == senderTypeBot {
		return Ignore(ReasonBot)
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return Ignore(ReasonEmpty)
	}

	name := ev.Name
	if strings.TrimSpace(name) == "" {
		name = DefaultSenderName
	}
	groupID := ev.GroupID
	if groupID == "" {
		groupID = DefaultGroupID
	}
	return Action{Respond: true, GroupID: groupID, SenderName: name, Text: text}
}
