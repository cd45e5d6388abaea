package action

// EventType discriminates StreamEvent records.
type EventType string

const (
	EventSecurityResponse EventType = "security_response"
	EventProcessing       EventType = "processing"
	EventFunctionStart    EventType = "function_start"
	EventFunctionComplete EventType = "function_complete"
	EventTextChunk        EventType = "text_chunk"
	EventResponse         EventType = "response"
	EventError            EventType = "error"
	EventComplete         EventType = "complete"
)

// Event is one record of the ordered stream produced for an utterance.
type Event struct {
	Type       EventType      `json:"type"`
	Function   Name           `json:"function,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Message    string         `json:"message,omitempty"`
	Content    string         `json:"content,omitempty"`
	Complete   bool           `json:"complete,omitempty"`
}

// Terminal reports whether e ends the stream of its utterance.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || (e.Type == EventSecurityResponse && e.Complete)
}

func Processing(msg string) Event {
	return Event{Type: EventProcessing, Message: msg}
}

func FunctionStart(name Name, msg string) Event {
	return Event{Type: EventFunctionStart, Function: name, Message: msg}
}

func FunctionComplete(name Name, params map[string]any, msg string) Event {
	return Event{Type: EventFunctionComplete, Function: name, Parameters: params, Message: msg}
}

func TextChunk(content string) Event {
	return Event{Type: EventTextChunk, Content: content}
}

func Response(msg string) Event {
	return Event{Type: EventResponse, Message: msg}
}

func Error(msg string) Event {
	return Event{Type: EventError, Message: msg}
}

func Complete() Event {
	return Event{Type: EventComplete}
}

func SecurityResponse(msg string) Event {
	return Event{Type: EventSecurityResponse, Message: msg, Complete: true}
}
