package campaign

type RegisterRequest struct {
	OwnerID             int64  `json:"ownerId"`
	PlaceID             int64  `json:"placeId"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	Tier                int    `json:"tier"`
	QuestKind           string `json:"questKind"`
	RequestedRewardTime int    `json:"requestedRewardTime"`
}

type RegisterResult struct {
	Success            bool   `json:"success"`
	Status             Status `json:"status"`
	Tier               int    `json:"tier"`
	RewardTimeRequired int    `json:"rewardTimeRequired"`
	Message            string `json:"message,omitempty"`
}

type BuyVisitsRequest struct {
	OwnerID int64 `json:"ownerId"`
	PlaceID int64 `json:"placeId"`
	Amount  int64 `json:"amount"`
}

type PurchaseResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	RemainingVisits int64  `json:"remainingVisits"`
	TotalCost       int64  `json:"totalCost"`
	PromoSpent      int64  `json:"promoSpent"`
	RealSpent       int64  `json:"realSpent"`
	Shortfall       int64  `json:"shortfall,omitempty"`
}

type AdminDecideRequest struct {
	PlaceID int64  `json:"placeId"`
	Action  string `json:"action"` // "approve" | "reject"
}

type Dashboard struct {
	Success            bool   `json:"success"`
	OwnerID            int64  `json:"ownerId"`
	APIKey             string `json:"apiKey"`
	RealBalance        int64  `json:"realBalance"`
	PromotionalBalance int64  `json:"promotionalBalance"`
	PlaceID            int64  `json:"placeId,omitempty"`
	RemainingVisits    int64  `json:"remainingVisits"`
	Status             string `json:"status"`
}
