package types

// Client -> Server
//
// command: { "type": "command", "line": "/tour join" }
// team:    { "type": "team", "team": "pikachu,eevee" }
type ClientMessage struct {
	Type string `json:"type"`
	Line string `json:"line,omitempty"`
	Team string `json:"team,omitempty"`
}

const (
	ClientCommand = "command"
	ClientTeam    = "team"
)

// Server -> Client
//
// tournament: { "type": "tournament", "event": "update", "data": {...} }
// log:        { "type": "log", "line": "..." }          room-visible line
// reply:      { "type": "reply", "line": "..." }        answer to this client only
// error:      { "type": "error", "error": "NotStarted" }
type ServerMessage struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Line  string `json:"line,omitempty"`
	Error string `json:"error,omitempty"`
}

const (
	ServerTournament = "tournament"
	ServerLog        = "log"
	ServerReply      = "reply"
	ServerError      = "error"
)

// TournamentSummary is one entry of the tournament listing.
type TournamentSummary struct {
	Room      string `json:"room"`
	Format    string `json:"format"`
	Generator string `json:"generator"`
	IsStarted bool   `json:"isStarted"`
}

// MatchReport concludes a hosted match. An empty winner is a draw.
type MatchReport struct {
	Winner string `json:"winner"`
	Score  []int  `json:"score"`
}
