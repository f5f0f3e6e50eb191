package bot

// EventKind classifies an inbound conversation event.
type EventKind int

const (
	KindCommand EventKind = iota + 1
	KindText
	KindPhoto
	KindLocation
)

// Bot commands.
const (
	CmdStart    = "start" // registration; Arg carries the deep-link token
	CmdScan     = "scan"
	CmdEndShift = "endshift"
	CmdStatus   = "status"
	CmdHelp     = "help"
)

// Event is one inbound conversation event, normalized by the transport
// adapter.
type Event struct {
	ChatID   int64
	Kind     EventKind
	Command  string
	Arg      string
	Text     string
	PhotoRef string
	Lat      float64
	Lon      float64
}

// Reply is the outbound message produced by a transition. A zero Reply (empty
// Text) means nothing should be sent, e.g. a dropped stale recognition result.
type Reply struct {
	ChatID  int64
	Text    string
	Options []string
}

func reply(chatID int64, text string) Reply {
	return Reply{ChatID: chatID, Text: text}
}

func replyOptions(chatID int64, text string, options []string) Reply {
	return Reply{ChatID: chatID, Text: text, Options: options}
}
