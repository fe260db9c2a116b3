package quest

import "time"

type Status string

const (
	StatusStarted Status = "started"
	StatusArrived Status = "arrived"
	// StatusExpired is terminal: a started quest whose token aged past the
	// TTL unredeemed. Retiring it frees the (player, target) slot for a
	// fresh journey.
	StatusExpired   Status = "expired"
	StatusCompleted Status = "completed"
	StatusClaimed   Status = "claimed"
)

// Quest is one player's journey from a source campaign to a target campaign.
// Rows are never deleted; claimed quests stay around as the audit trail and
// as the counter source for the daily cap and the per-batch replay rule.
type Quest struct {
	ID              string     `json:"id"`
	Token           string     `json:"token"`
	PlayerID        int64      `json:"playerId"`
	SourcePlaceID   int64      `json:"sourcePlaceId"`
	TargetPlaceID   int64      `json:"targetPlaceId"`
	Status          Status     `json:"status"`
	TrafficValid    bool       `json:"trafficValid"`
	PayoutProcessed bool       `json:"payoutProcessed"`
	CompletedTier   *int       `json:"completedTier,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ArrivedAt       *time.Time `json:"arrivedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	ClaimedAt       *time.Time `json:"claimedAt,omitempty"`
}

func (s Status) Open() bool {
	return s == StatusStarted || s == StatusArrived
}
