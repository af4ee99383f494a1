package tournament

type Kind string

const (
	KindCreate      Kind = "create"
	KindUpdate      Kind = "update"
	KindUpdateEnd   Kind = "updateEnd"
	KindStart       Kind = "start"
	KindJoin        Kind = "join"
	KindLeave       Kind = "leave"
	KindReplace     Kind = "replace"
	KindDisqualify  Kind = "disqualify"
	KindBattleStart Kind = "battlestart"
	KindBattleEnd   Kind = "battleend"
	KindEnd         Kind = "end"
	KindForceEnd    Kind = "forceend"
	KindPopup       Kind = "popup"
)

// Fields is an event payload. A nil value clears the field on the client.
type Fields map[string]any

type Event struct {
	Kind Kind
	Data any
}

func update(f Fields) Event { return Event{Kind: KindUpdate, Data: f} }
