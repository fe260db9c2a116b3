package quest

type StartRequest struct {
	PlayerID           int64 `json:"playerId"`
	SourcePlaceID      int64 `json:"sourcePlaceId"`
	DestinationPlaceID int64 `json:"destinationPlaceId"`
}

type StartResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ArrivalResult struct {
	Success            bool   `json:"success"`
	QuestKind          string `json:"questKind,omitempty"`
	Description        string `json:"description,omitempty"`
	DwellSeconds       int    `json:"dwellSeconds,omitempty"`
	RewardTimeRequired int    `json:"rewardTimeRequired,omitempty"`
	Message            string `json:"message,omitempty"`
}

type TrafficResult struct {
	Success          bool   `json:"success"`
	QuestCompleted   bool   `json:"questCompleted"`
	RemainingSeconds int    `json:"remainingSeconds,omitempty"`
	Message          string `json:"message,omitempty"`
}

type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type ClaimRequest struct {
	PlayerID       int64 `json:"playerId"`
	CurrentPlaceID int64 `json:"currentPlaceId"`
}

// ClaimResult hands back the tier of every quest flipped to claimed; the
// calling game decides the in-game reward magnitude per tier.
type ClaimResult struct {
	Success bool  `json:"success"`
	Tiers   []int `json:"tiers"`
	Count   int   `json:"count"`
}

// AvailableQuest is one advertisable campaign for a given player.
type AvailableQuest struct {
	PlaceID            int64  `json:"placeId"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	Tier               int    `json:"tier"`
	QuestKind          string `json:"questKind"`
	RewardTimeRequired int    `json:"rewardTimeRequired"`
	InFlight           bool   `json:"inFlight"`
	ResumeToken        string `json:"resumeToken,omitempty"`
}
