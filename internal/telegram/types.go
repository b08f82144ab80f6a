package telegram

// User is the sender profile attached to an inbound message.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Message is one inbound Bot API message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// Update is one long-polling update envelope.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// KeyboardButton is one button of a reply keyboard.
type KeyboardButton struct {
	Text string `json:"text"`
}

// ReplyKeyboardMarkup renders a persistent keyboard under the input field.
type ReplyKeyboardMarkup struct {
	Keyboard        [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool               `json:"one_time_keyboard,omitempty"`
}

// SingleColumnKeyboard builds a one-button-per-row reply keyboard.
func SingleColumnKeyboard(labels ...string) *ReplyKeyboardMarkup {
	rows := make([][]KeyboardButton, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []KeyboardButton{{Text: label}})
	}
	return &ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}
