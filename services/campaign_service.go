package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"questNetAPI/internal/campaign"
	"questNetAPI/internal/clock"
	"questNetAPI/internal/economy"
	"questNetAPI/internal/notification"
)

// CampaignService is the registry of advertised games: registration,
// admin approval, visit inventory purchases, and the resolve-or-create path
// the payout step uses for never-registered source games.
type CampaignService struct {
	db       *pgxpool.Pool
	ledger   *LedgerService
	metadata GameMetadataResolver
	notifs   *NotificationService
	clk      clock.Clock
	cfg      economy.Config
}

func NewCampaignService(db *pgxpool.Pool, ledger *LedgerService, metadata GameMetadataResolver, notifs *NotificationService, clk clock.Clock, cfg economy.Config) *CampaignService {
	return &CampaignService{
		db:       db,
		ledger:   ledger,
		metadata: metadata,
		notifs:   notifs,
		clk:      clk,
		cfg:      cfg,
	}
}

// GetByPlaceID loads one campaign. Returns (nil, nil) when it does not exist.
func (s *CampaignService) GetByPlaceID(ctx context.Context, placeID int64) (*campaign.Campaign, error) {
	query := `
		SELECT place_id, owner_id, name, description, tier, quest_kind,
		       reward_time_required, remaining_visits, status, last_refill_at,
		       created_at, updated_at
		FROM campaigns
		WHERE place_id = $1
	`
	var c campaign.Campaign
	err := s.db.QueryRow(ctx, query, placeID).Scan(
		&c.PlaceID,
		&c.OwnerID,
		&c.Name,
		&c.Description,
		&c.Tier,
		&c.QuestKind,
		&c.RewardTimeRequired,
		&c.RemainingVisits,
		&c.Status,
		&c.LastRefillAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %d: %w", placeID, err)
	}
	return &c, nil
}

// Register upserts a campaign keyed by place id. An already-active campaign
// stays active; anything else is resolved through the external popularity
// check, degrading to pending when the lookup cannot answer. remaining_visits
// is seeded to 0 only on first insert and never reset by re-registration.
func (s *CampaignService) Register(ctx context.Context, req *campaign.RegisterRequest) (*campaign.RegisterResult, error) {
	if _, err := s.ledger.EnsureOwner(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	tier, _ := s.cfg.ResolveTier(req.Tier)
	rewardTime := s.cfg.ClampRewardTime(tier, req.RequestedRewardTime)
	kind := campaign.NormalizeKind(req.QuestKind)

	existing, err := s.GetByPlaceID(ctx, req.PlaceID)
	if err != nil {
		return nil, err
	}

	status := campaign.StatusPending
	if existing != nil && existing.Status == campaign.StatusActive {
		status = campaign.StatusActive
	} else if meta := s.metadata.ResolveGame(ctx, req.PlaceID); meta != nil && meta.VisitCount >= s.cfg.AutoApproveVisits {
		status = campaign.StatusActive
	}

	query := `
		INSERT INTO campaigns (place_id, owner_id, name, description, tier, quest_kind,
		                       reward_time_required, remaining_visits, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
		ON CONFLICT (place_id) DO UPDATE SET
			owner_id = $2,
			name = $3,
			description = $4,
			tier = $5,
			quest_kind = $6,
			reward_time_required = $7,
			status = $8,
			updated_at = now()
	`
	_, err = s.db.Exec(ctx, query,
		req.PlaceID, req.OwnerID, req.Name, req.Description, tier, kind, rewardTime, status)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert campaign %d: %w", req.PlaceID, err)
	}

	message := "Campaign registered and active"
	if status == campaign.StatusPending {
		message = "Campaign registered, awaiting approval"
	}

	return &campaign.RegisterResult{
		Success:            true,
		Status:             status,
		Tier:               tier,
		RewardTimeRequired: rewardTime,
		Message:            message,
	}, nil
}

// AdminDecide approves or rejects a pending campaign.
func (s *CampaignService) AdminDecide(ctx context.Context, placeID int64, approve bool) (bool, error) {
	status := campaign.StatusRejected
	if approve {
		status = campaign.StatusActive
	}

	var ownerID int64
	err := s.db.QueryRow(ctx, `
		UPDATE campaigns SET status = $2, updated_at = now()
		WHERE place_id = $1
		RETURNING owner_id
	`, placeID, status).Scan(&ownerID)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update campaign %d status: %w", placeID, err)
	}

	kind := notification.KindCampaignRejected
	title := "Campaign rejected"
	body := fmt.Sprintf("Your campaign for place %d was rejected.", placeID)
	if approve {
		kind = notification.KindCampaignApproved
		title = "Campaign approved"
		body = fmt.Sprintf("Your campaign for place %d is now live.", placeID)
	}
	if err := s.notifs.Notify(ctx, ownerID, kind, title, body); err != nil {
		log.Printf("campaigns: failed to notify owner %d: %v", ownerID, err)
	}

	return true, nil
}

// PurchaseVisits tops up a campaign's visit inventory. The debit is one
// atomic promo-first ledger operation; only a paid debit reaches the
// inventory increment, which also stamps last_refill_at — the signal the
// eligibility filter uses to re-open the campaign for players who exhausted
// a previous batch.
func (s *CampaignService) PurchaseVisits(ctx context.Context, req *campaign.BuyVisitsRequest) (*campaign.PurchaseResult, error) {
	if req.Amount <= 0 {
		return &campaign.PurchaseResult{Success: false, Message: "amount must be positive"}, nil
	}

	c, err := s.GetByPlaceID(ctx, req.PlaceID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &campaign.PurchaseResult{Success: false, Message: "campaign not found"}, nil
	}
	if c.Status != campaign.StatusActive {
		return &campaign.PurchaseResult{Success: false, Message: "campaign is not active"}, nil
	}

	_, tierSpec := s.cfg.ResolveTier(c.Tier)
	totalCost := req.Amount * tierSpec.CostPerVisit

	debit, err := s.ledger.DebitMixed(ctx, req.OwnerID, totalCost)
	if err != nil {
		return nil, err
	}
	if !debit.Paid {
		return &campaign.PurchaseResult{
			Success:   false,
			Message:   fmt.Sprintf("insufficient funds: need %d more credits", debit.Shortfall),
			TotalCost: totalCost,
			Shortfall: debit.Shortfall,
		}, nil
	}

	var remaining int64
	err = s.db.QueryRow(ctx, `
		UPDATE campaigns
		SET remaining_visits = remaining_visits + $2,
		    last_refill_at = $3,
		    updated_at = now()
		WHERE place_id = $1
		RETURNING remaining_visits
	`, req.PlaceID, req.Amount, s.clk.Now()).Scan(&remaining)
	if err != nil {
		// The debit already landed; surface loudly, this needs an operator.
		return nil, fmt.Errorf("debit succeeded but inventory update failed for campaign %d: %w", req.PlaceID, err)
	}

	visitsSold.Add(float64(req.Amount))

	body := fmt.Sprintf("Added %d visits to place %d (cost %d credits).", req.Amount, req.PlaceID, totalCost)
	if err := s.notifs.Notify(ctx, req.OwnerID, notification.KindVisitsPurchased, "Visits purchased", body); err != nil {
		log.Printf("campaigns: failed to notify owner %d: %v", req.OwnerID, err)
	}

	return &campaign.PurchaseResult{
		Success:         true,
		Message:         fmt.Sprintf("Purchased %d visits", req.Amount),
		RemainingVisits: remaining,
		TotalCost:       totalCost,
		PromoSpent:      debit.PromoSpent,
		RealSpent:       debit.RealSpent,
	}, nil
}

// Dashboard is the owner's admin-panel view: balances, API key, and the
// state of one campaign.
func (s *CampaignService) Dashboard(ctx context.Context, ownerID, placeID int64) (*campaign.Dashboard, error) {
	o, err := s.ledger.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	d := &campaign.Dashboard{
		Success:            true,
		OwnerID:            o.OwnerID,
		APIKey:             o.APIKey,
		RealBalance:        o.RealBalance,
		PromotionalBalance: o.PromotionalBalance,
		Status:             "not_registered",
	}

	if placeID != 0 {
		c, err := s.GetByPlaceID(ctx, placeID)
		if err != nil {
			return nil, err
		}
		if c != nil {
			d.PlaceID = c.PlaceID
			d.RemainingVisits = c.RemainingVisits
			d.Status = string(c.Status)
		}
	}

	return d, nil
}

// ResolveOrCreateSource maps a source place id to its owner for the payout
// step. Unregistered sources are resolved through the external directory and
// written down as inactive shell campaigns so the next payout is one SELECT.
// Returns ok=false when no owner can be determined; the payout is forfeited.
func (s *CampaignService) ResolveOrCreateSource(ctx context.Context, placeID int64) (int64, bool) {
	c, err := s.GetByPlaceID(ctx, placeID)
	if err != nil {
		log.Printf("campaigns: source lookup failed for place %d: %v", placeID, err)
		return 0, false
	}
	if c != nil {
		return c.OwnerID, true
	}

	meta := s.metadata.ResolveGame(ctx, placeID)
	if meta == nil {
		return 0, false
	}

	if _, err := s.ledger.EnsureOwner(ctx, meta.OwnerID); err != nil {
		log.Printf("campaigns: failed to ensure owner %d for source shell: %v", meta.OwnerID, err)
		return 0, false
	}

	_, tierSpec := s.cfg.ResolveTier(economy.DefaultTier)
	_, err = s.db.Exec(ctx, `
		INSERT INTO campaigns (place_id, owner_id, name, description, tier, quest_kind,
		                       reward_time_required, remaining_visits, status)
		VALUES ($1, $2, $3, '', $4, $5, $6, 0, $7)
		ON CONFLICT (place_id) DO NOTHING
	`, placeID, meta.OwnerID, meta.Name, economy.DefaultTier, campaign.KindTime, tierSpec.DwellSeconds, campaign.StatusInactive)
	if err != nil {
		log.Printf("campaigns: failed to create source shell for place %d: %v", placeID, err)
		// The owner is known regardless; the payout can still go through.
	}

	return meta.OwnerID, true
}
