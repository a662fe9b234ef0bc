// Package domain holds the wire message types shared by the session handler,
// the hub, and the periodic stats ticker.
package domain

// Message type discriminators.
const (
	TypeLaunch      = "launch"
	TypeStats       = "stats"
	TypeFirework    = "firework"
	TypeCountUpdate = "count_update"
	TypeCooldown    = "cooldown"
)

// ClientMessage is the envelope for client→server messages. Only the type is
// inspected; unknown types are ignored.
type ClientMessage struct {
	Type string `json:"type"`
}

// StatsMessage carries aggregate state. Sent once on connect and on the
// periodic cadence.
type StatsMessage struct {
	Type   string  `json:"type"`
	Total  int64   `json:"total"`
	Rate   float64 `json:"rate"`
	Online int     `json:"online"`
}

func NewStatsMessage(total int64, rate float64, online int) StatsMessage {
	return StatsMessage{Type: TypeStats, Total: total, Rate: rate, Online: online}
}

// FireworkMessage is a displayed launch event.
type FireworkMessage struct {
	Type       string  `json:"type"`
	X          float64 `json:"x"`
	Count      int64   `json:"count"`
	SampleRate int     `json:"sample_rate"`
}

func NewFireworkMessage(x float64, count int64, sampleRate int) FireworkMessage {
	return FireworkMessage{Type: TypeFirework, X: x, Count: count, SampleRate: sampleRate}
}

// CountUpdateMessage is a sampled-out launch: the counter still advances for
// every client, only the display payload is suppressed.
type CountUpdateMessage struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

func NewCountUpdateMessage(count int64) CountUpdateMessage {
	return CountUpdateMessage{Type: TypeCountUpdate, Count: count}
}

// CooldownMessage tells a client its launch was rejected by the rate limiter.
type CooldownMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewCooldownMessage(message string) CooldownMessage {
	return CooldownMessage{Type: TypeCooldown, Message: message}
}
