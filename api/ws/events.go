package ws

// Event type discriminators of the realtime wire protocol. Cell and stats
// events are born on the server; the editing presence pair is relayed
// between clients unchanged.
const (
	EventCellUpdated        = "CELL_UPDATED"
	EventCellDeleted        = "CELL_DELETED"
	EventOnlineCountUpdated = "ONLINE_COUNT_UPDATED"
	EventSystemStatsUpdated = "SYSTEM_STATS_UPDATED"
	EventUserIsEditing      = "USER_IS_EDITING"
	EventUserStoppedEditing = "USER_STOPPED_EDITING"
)

// Envelope is the frame every realtime message travels in.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// StatsPayload carries the live canvas statistics pushed to all clients.
type StatsPayload struct {
	OnlineCount int   `json:"onlineCount"`
	TotalCells  int64 `json:"totalCells"`
}
