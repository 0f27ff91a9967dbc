// Package progress carries job events from workers to streaming clients.
package progress

// Event types on the wire.
const (
	TypeQueueStatus = "queue_status"
	TypeCheckpoint  = "checkpoint"
	TypeContent     = "content"
	TypeProcessing  = "processing"
	TypeEnd         = "end"
	TypeError       = "error"

	TypeAnalyzing   = "analyzing_requirements"
	TypeClarifying  = "clarifying_requirements"
	TypeResearching = "researching_content"
	TypeMedia       = "generating_media"
	TypeDrafting    = "creating_content"
	TypeQuality     = "checking_quality"
	TypePosting     = "posting_content"
)

// Event is one message on a progress channel.
type Event struct {
	Type         string `json:"type"`
	Content      string `json:"content,omitempty"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
	Position     int    `json:"position,omitempty"`
	Message      string `json:"message,omitempty"`
	Node         string `json:"node,omitempty"`
}

// Terminal reports whether consumers must stop after this event.
func (e Event) Terminal() bool {
	return e.Type == TypeEnd || e.Type == TypeError
}

func QueueStatus(position int, message string) Event {
	return Event{Type: TypeQueueStatus, Position: position, Message: message}
}

func Checkpoint(id string) Event {
	return Event{Type: TypeCheckpoint, CheckpointID: id}
}

func Content(text string) Event {
	return Event{Type: TypeContent, Content: text}
}

// Phase is a bare phase marker such as researching_content.
func Phase(phaseType string) Event {
	return Event{Type: phaseType}
}

func Processing(node string) Event {
	return Event{Type: TypeProcessing, Node: node}
}

func End() Event {
	return Event{Type: TypeEnd}
}

func Error(message string) Event {
	return Event{Type: TypeError, Content: message}
}
