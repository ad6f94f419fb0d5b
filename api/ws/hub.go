package ws

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/hanpf2391/Flux/api/serializer"
	"github.com/hanpf2391/Flux/lib/grid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("ws")

var metricBroadcasts = metrics.NewCounter("flux_ws_broadcasts_total")

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Conn is one attached realtime client. The hub only needs an identity and
// a way to push frames; the websocket wiring lives in conn.go and tests
// substitute their own implementation.
type Conn interface {
	// ID returns the session identifier, unique per connection.
	ID() string
	// WriteText pushes one text frame to the client. Safe for concurrent use.
	WriteText(data []byte) error
	// Close tears the connection down.
	Close() error
}

// CellCounter is the slice of the grid store the hub needs for the stats
// broadcast.
type CellCounter interface {
	CountCurrent() (int64, error)
}

// Hub tracks the attached clients and fans events out to them. It also
// implements resolver.Notifier, so resolved writes broadcast without the
// resolver knowing about websockets.
//
// Thread-safety: all methods are safe for concurrent use. The connection
// set is a concurrent map; per-connection write ordering is the Conn's
// concern.
type Hub struct {
	conns   *xsync.MapOf[string, Conn]
	ser     serializer.ISerializer
	counter CellCounter
}

// NewHub creates an empty hub using the given counter for the stats
// broadcast. The realtime channel always speaks JSON: the clients are
// browsers, and their frames must decode without type registration.
func NewHub(counter CellCounter) *Hub {
	return &Hub{
		conns:   xsync.NewMapOf[string, Conn](),
		ser:     serializer.NewJSONSerializer(),
		counter: counter,
	}
}

// --------------------------------------------------------------------------
// Connection lifecycle
// --------------------------------------------------------------------------

// OnConnect registers a connection and pushes fresh presence and stats
// to everyone, the newcomer included.
func (h *Hub) OnConnect(c Conn) {
	h.conns.Store(c.ID(), c)
	Logger.Infof("client %s connected (%d online)", c.ID(), h.OnlineCount())
	h.broadcastPresence()
}

// OnDisconnect removes a connection and pushes fresh presence and stats to
// the remaining clients. Unknown connections are ignored.
func (h *Hub) OnDisconnect(c Conn) {
	if _, loaded := h.conns.LoadAndDelete(c.ID()); !loaded {
		return
	}
	Logger.Infof("client %s disconnected (%d online)", c.ID(), h.OnlineCount())
	h.broadcastPresence()
}

// OnlineCount returns the number of attached clients.
func (h *Hub) OnlineCount() int {
	return h.conns.Size()
}

// --------------------------------------------------------------------------
// Outbound fan-out
// --------------------------------------------------------------------------

// BroadcastAll serializes the event once and pushes it to every attached
// client. A failing client is skipped, not evicted; its read pump notices
// the dead socket and runs the disconnect path.
func (h *Hub) BroadcastAll(eventType string, payload any) {
	data, err := h.ser.Serialize(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		Logger.Errorf("failed to serialize %s event: %v", eventType, err)
		return
	}
	metricBroadcasts.Inc()
	h.fanOut(data, "")
}

// RelayToOthers pushes a raw frame to every attached client except the
// sender.
func (h *Hub) RelayToOthers(senderID string, frame []byte) {
	h.fanOut(frame, senderID)
}

// fanOut pushes one frame to all clients, skipping the excluded session id.
func (h *Hub) fanOut(frame []byte, exclude string) {
	h.conns.Range(func(id string, c Conn) bool {
		if id == exclude {
			return true
		}
		if err := c.WriteText(frame); err != nil {
			Logger.Debugf("dropped frame for client %s: %v", id, err)
		}
		return true
	})
}

// BroadcastStats pushes the current statistics to all clients. A failing
// count is logged and the broadcast skipped; the next state change sends
// a fresh one.
func (h *Hub) BroadcastStats() {
	total, err := h.counter.CountCurrent()
	if err != nil {
		Logger.Errorf("failed to count cells for stats broadcast: %v", err)
		return
	}
	h.BroadcastAll(EventSystemStatsUpdated, StatsPayload{
		OnlineCount: h.OnlineCount(),
		TotalCells:  total,
	})
}

// broadcastPresence pushes the online count followed by the full stats.
func (h *Hub) broadcastPresence() {
	h.BroadcastAll(EventOnlineCountUpdated, h.OnlineCount())
	h.BroadcastStats()
}

// --------------------------------------------------------------------------
// Inbound
// --------------------------------------------------------------------------

// inboundEnvelope only decodes the discriminator; the payload is relayed
// verbatim.
type inboundEnvelope struct {
	Type string `json:"type"`
}

// HandleInbound processes one frame received from a client. Only the
// editing presence events are accepted and relayed to the other clients;
// everything else is dropped. State changes never enter through here.
func (h *Hub) HandleInbound(senderID string, frame []byte) {
	var envelope inboundEnvelope
	if err := h.ser.Deserialize(frame, &envelope); err != nil {
		Logger.Debugf("dropped undecodable frame from client %s: %v", senderID, err)
		return
	}

	switch envelope.Type {
	case EventUserIsEditing, EventUserStoppedEditing:
		h.RelayToOthers(senderID, frame)
	default:
		Logger.Debugf("dropped %q frame from client %s", envelope.Type, senderID)
	}
}

// --------------------------------------------------------------------------
// resolver.Notifier
// --------------------------------------------------------------------------

// CellUpdated broadcasts the new state of a created or updated cell.
func (h *Hub) CellUpdated(state grid.CellState) {
	h.BroadcastAll(EventCellUpdated, state)
}

// CellDeleted broadcasts the coordinate of an emptied cell.
func (h *Hub) CellDeleted(coord grid.Coordinate) {
	h.BroadcastAll(EventCellDeleted, coord)
}

// StatsChanged broadcasts fresh statistics after a state change.
func (h *Hub) StatsChanged() {
	h.BroadcastStats()
}

// Close tears down every attached connection.
func (h *Hub) Close() {
	h.conns.Range(func(id string, c Conn) bool {
		if err := c.Close(); err != nil {
			Logger.Debugf("failed to close client %s: %v", id, err)
		}
		h.conns.Delete(id)
		return true
	})
}
