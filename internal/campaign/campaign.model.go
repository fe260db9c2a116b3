package campaign

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
	// StatusInactive marks auto-registered source shells that were never
	// advertised by their owner. They exist only so payouts resolve in one hop.
	StatusInactive Status = "inactive"
)

type QuestKind string

const (
	KindTime   QuestKind = "time"
	KindAction QuestKind = "action"
)

func NormalizeKind(k string) QuestKind {
	if QuestKind(k) == KindAction {
		return KindAction
	}
	return KindTime
}

type Campaign struct {
	PlaceID            int64      `json:"placeId"`
	OwnerID            int64      `json:"ownerId"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Tier               int        `json:"tier"`
	QuestKind          QuestKind  `json:"questKind"`
	RewardTimeRequired int        `json:"rewardTimeRequired"`
	RemainingVisits    int64      `json:"remainingVisits"`
	Status             Status     `json:"status"`
	LastRefillAt       *time.Time `json:"lastRefillAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}
