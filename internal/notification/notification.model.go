package notification

import "time"

type Kind string

const (
	KindCampaignApproved Kind = "campaign_approved"
	KindCampaignRejected Kind = "campaign_rejected"
	KindPayoutReceived   Kind = "payout_received"
	KindVisitsPurchased  Kind = "visits_purchased"
)

type Notification struct {
	ID        string     `json:"id"`
	OwnerID   int64      `json:"ownerId"`
	Kind      Kind       `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

type DeviceToken struct {
	OwnerID  int64  `json:"ownerId"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type RegisterDeviceRequest struct {
	OwnerID  int64  `json:"ownerId"`
	Token    string `json:"token"`
	Platform string `json:"platform,omitempty"`
}
