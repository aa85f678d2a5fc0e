// Package wire defines the inter-worker message shape shared by every tag, and the
// stable tag values that pick which fields are meaningful.
package wire

// Tag identifies the kind of a cross-worker message. Values are stable across workers
// and across builds -- they are effectively a wire protocol.
type Tag int32

const (
	SetToLabel       Tag = 1
	ComputeFromLabel Tag = 2
	SinkFound        Tag = 3
	UpdateFlow       Tag = 4
	SourceFound      Tag = 5
	TotalFlow        Tag = 6
	TokenWhite       Tag = 7
	TokenRed         Tag = 8
	CheckTermination Tag = 9
)

func (t Tag) String() string {
	switch t {
	case SetToLabel:
		return "SET_TO_LABEL"
	case ComputeFromLabel:
		return "COMPUTE_FROM_LABEL"
	case SinkFound:
		return "SINK_FOUND"
	case UpdateFlow:
		return "UPDATE_FLOW"
	case SourceFound:
		return "SOURCE_FOUND"
	case TotalFlow:
		return "TOTAL_FLOW"
	case TokenWhite:
		return "TOKEN_WHITE"
	case TokenRed:
		return "TOKEN_RED"
	case CheckTermination:
		return "CHECK_TERMINATION"
	default:
		return "UNKNOWN"
	}
}

// Message is the single struct layout shared by all tags. Tokens,
// SINK_FOUND, SOURCE_FOUND and CHECK_TERMINATION carry no payload beyond Pass: their
// receivers ignore SenderGID, ReceiverGID and Value, and the SINK_FOUND and SOURCE_FOUND
// receivers use Pass to drop notifications left over from an earlier iteration.
type Message struct {
	SenderGID   uint64
	ReceiverGID uint64
	Value       int64
	Pass        int32
}

// Envelope is what actually travels the wire: the tag plus the payload, and the worker
// that sent it (the SET_TO_LABEL and COMPUTE_FROM_LABEL handlers record it as the new
// label's PrevWorker).
type Envelope struct {
	From    int
	Tag     Tag
	Message Message
}
