package models

// OutboundMessageRequest is a manual send through the messaging API.
type OutboundMessageRequest struct {
	To         string `json:"to" validate:"required"`
	Message    string `json:"message" validate:"required"`
	PreviewURL bool   `json:"preview_url"`
}

func (in OutboundMessageRequest) Validate() error {
	return ValidateStruct(in).Err()
}

// AutomationReply is the answer sent back to a worker after a command ran.
type AutomationReply struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (r AutomationReply) Text() string {
	if r.Title == "" {
		return r.Message
	}
	return "*" + r.Title + "*\n" + r.Message
}
