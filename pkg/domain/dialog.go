package domain

// DialogSnapshot is the classified text of one dialog notification.
// It lives for a single event and is never persisted.
type DialogSnapshot struct {
	RawText            string `json:"raw_text"`
	LooksLikeMainMenu  bool   `json:"looks_like_main_menu"`
	LooksLikePinPrompt bool   `json:"looks_like_pin_prompt"`
	LooksLikeTerminal  bool   `json:"looks_like_terminal"`
	LooksLikeSuccess   bool   `json:"looks_like_success"`
	LooksLikeMismatch  bool   `json:"looks_like_mismatch"`
	LooksLikeWrongPIN  bool   `json:"looks_like_wrong_pin"`
}

// InputField names what kind of value is typed into a dialog.
type InputField string

const (
	FieldMenu    InputField = "menu"
	FieldPhone   InputField = "phone"
	FieldAmount  InputField = "amount"
	FieldConfirm InputField = "confirm"
	FieldPIN     InputField = "pin"
)
