package owner

type AddBalanceRequest struct {
	OwnerID int64  `json:"ownerId"`
	Amount  int64  `json:"amount"`
	Kind    string `json:"kind,omitempty"`
}

// DebitResult reports the outcome of a mixed promo-first debit. Paid=false
// with a Shortfall is a normal negative result, not an error.
type DebitResult struct {
	Paid               bool  `json:"paid"`
	PromoSpent         int64 `json:"promoSpent"`
	RealSpent          int64 `json:"realSpent"`
	PromotionalBalance int64 `json:"promotionalBalance"`
	RealBalance        int64 `json:"realBalance"`
	Shortfall          int64 `json:"shortfall,omitempty"`
}
