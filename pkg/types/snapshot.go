package types

// BracketData is the display form of a bracket, tagged by Type ("tree" or "table").
type BracketData struct {
	Type          string         `json:"type"`
	RootNode      *BracketNode   `json:"rootNode,omitempty"`
	TableHeaders  *TableHeaders  `json:"tableHeaders,omitempty"`
	TableContents [][]*TableCell `json:"tableContents,omitempty"`
	Scores        []float64      `json:"scores,omitempty"`
}

// BracketNode states: unavailable | available | challenging | inprogress | finished.
// Room is set while a match is in progress.
type BracketNode struct {
	Team     string         `json:"team,omitempty"`
	State    string         `json:"state,omitempty"`
	Result   string         `json:"result,omitempty"`
	Score    []int          `json:"score,omitempty"`
	Room     string         `json:"room,omitempty"`
	Children []*BracketNode `json:"children"`
}

type TableHeaders struct {
	Cols []string `json:"cols"`
	Rows []string `json:"rows"`
}

type TableCell struct {
	State  string `json:"state"`
	Result string `json:"result,omitempty"`
	Score  []int  `json:"score,omitempty"`
	Room   string `json:"room,omitempty"`
}
