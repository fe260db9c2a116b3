package owner

import "time"

type Owner struct {
	OwnerID            int64     `json:"ownerId"`
	APIKey             string    `json:"apiKey,omitempty"`
	RealBalance        int64     `json:"realBalance"`
	PromotionalBalance int64     `json:"promotionalBalance"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// BalanceKind selects which bucket a credit lands in.
type BalanceKind string

const (
	BalanceReal        BalanceKind = "real"
	BalancePromotional BalanceKind = "promotional"
)

func (k BalanceKind) Valid() bool {
	return k == BalanceReal || k == BalancePromotional
}
