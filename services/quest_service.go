package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"questNetAPI/internal/campaign"
	"questNetAPI/internal/clock"
	"questNetAPI/internal/economy"
	"questNetAPI/internal/notification"
	"questNetAPI/internal/owner"
	"questNetAPI/internal/quest"
)

// QuestService drives the per-(player, target) journey:
// started -> arrived -> completed -> claimed. The dwell payout and the
// player's own completion are independent thresholds; both are guarded by
// conditional updates so frequent polling stays exactly-once.
type QuestService struct {
	db        *pgxpool.Pool
	campaigns *CampaignService
	ledger    *LedgerService
	notifs    *NotificationService
	clk       clock.Clock
	cfg       economy.Config
}

func NewQuestService(db *pgxpool.Pool, campaigns *CampaignService, ledger *LedgerService, notifs *NotificationService, clk clock.Clock, cfg economy.Config) *QuestService {
	return &QuestService{
		db:        db,
		campaigns: campaigns,
		ledger:    ledger,
		notifs:    notifs,
		clk:       clk,
		cfg:       cfg,
	}
}

func utcDayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *QuestService) getByToken(ctx context.Context, token string) (*quest.Quest, error) {
	query := `
		SELECT id, token, player_id, source_place_id, target_place_id, status,
		       traffic_valid, payout_processed, completed_tier,
		       created_at, arrived_at, completed_at, claimed_at
		FROM quests
		WHERE token = $1
	`
	var q quest.Quest
	err := s.db.QueryRow(ctx, query, token).Scan(
		&q.ID,
		&q.Token,
		&q.PlayerID,
		&q.SourcePlaceID,
		&q.TargetPlaceID,
		&q.Status,
		&q.TrafficValid,
		&q.PayoutProcessed,
		&q.CompletedTier,
		&q.CreatedAt,
		&q.ArrivedAt,
		&q.CompletedAt,
		&q.ClaimedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quest by token: %w", err)
	}
	return &q, nil
}

func (s *QuestService) openJourney(ctx context.Context, playerID, targetPlaceID int64) (*quest.Quest, error) {
	var q quest.Quest
	err := s.db.QueryRow(ctx, `
		SELECT token, status, created_at FROM quests
		WHERE player_id = $1 AND target_place_id = $2 AND status IN ('started', 'arrived')
		LIMIT 1
	`, playerID, targetPlaceID).Scan(&q.Token, &q.Status, &q.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up open journey: %w", err)
	}
	return &q, nil
}

// retireExpired flips a stale started quest to expired, freeing the
// (player, target) slot held by the partial unique index.
func (s *QuestService) retireExpired(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE quests SET status = 'expired'
		WHERE token = $1 AND status = 'started'
	`, token)
	if err != nil {
		return fmt.Errorf("failed to retire expired quest: %w", err)
	}
	return nil
}

func (s *QuestService) completedToday(ctx context.Context, targetPlaceID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM quests
		WHERE target_place_id = $1 AND traffic_valid = true AND created_at >= $2
	`, targetPlaceID, utcDayStart(s.clk.Now())).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed visits: %w", err)
	}
	return count, nil
}

// Start issues a token for a journey into the target campaign. The inventory
// check is advisory: the binding debit happens at dwell completion. An
// existing open journey for the same (player, target) is reused rather than
// duplicated; a partial unique index backs that up under concurrent starts.
// A started journey whose token aged past the TTL unredeemed is retired
// first, so it can never hold the slot forever.
func (s *QuestService) Start(ctx context.Context, req *quest.StartRequest) (*quest.StartResult, error) {
	target, err := s.campaigns.GetByPlaceID(ctx, req.DestinationPlaceID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.Status != campaign.StatusActive {
		return &quest.StartResult{Success: false, Message: "This game is not accepting quests"}, nil
	}
	if target.RemainingVisits <= 0 {
		return &quest.StartResult{Success: false, Message: "No quest slots left for this game"}, nil
	}

	count, err := s.completedToday(ctx, req.DestinationPlaceID)
	if err != nil {
		return nil, err
	}
	if count >= s.cfg.DailyVisitCap {
		return &quest.StartResult{Success: false, Message: "Daily limit reached for this game"}, nil
	}

	open, err := s.openJourney(ctx, req.PlayerID, req.DestinationPlaceID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if open.Status != quest.StatusStarted || s.clk.Since(open.CreatedAt) <= s.cfg.QuestTTL {
			return &quest.StartResult{Success: true, Token: open.Token}, nil
		}
		if err := s.retireExpired(ctx, open.Token); err != nil {
			return nil, err
		}
	}

	token := uuid.NewString()
	_, err = s.db.Exec(ctx, `
		INSERT INTO quests (id, token, player_id, source_place_id, target_place_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'started', $6)
	`, uuid.New(), token, req.PlayerID, req.SourcePlaceID, req.DestinationPlaceID, s.clk.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race against a concurrent start; hand back the winner's token.
			existing, lookErr := s.openJourney(ctx, req.PlayerID, req.DestinationPlaceID)
			if lookErr == nil && existing != nil {
				return &quest.StartResult{Success: true, Token: existing.Token}, nil
			}
		}
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}

	questsStarted.Inc()
	return &quest.StartResult{Success: true, Token: token}, nil
}

// ConfirmArrival redeems a token at the target game. Only a started quest
// within the TTL can arrive; the transition is a conditional update so a
// double redeem reports "already used" instead of re-stamping arrived_at.
func (s *QuestService) ConfirmArrival(ctx context.Context, token string) (*quest.ArrivalResult, error) {
	q, err := s.getByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return &quest.ArrivalResult{Success: false, Message: "Token invalid"}, nil
	}
	if q.Status == quest.StatusExpired {
		return &quest.ArrivalResult{Success: false, Message: "Token expired"}, nil
	}
	if q.Status != quest.StatusStarted {
		return &quest.ArrivalResult{Success: false, Message: "Token already used"}, nil
	}
	if s.clk.Since(q.CreatedAt) > s.cfg.QuestTTL {
		if err := s.retireExpired(ctx, token); err != nil {
			return nil, err
		}
		return &quest.ArrivalResult{Success: false, Message: "Token expired"}, nil
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE quests SET status = 'arrived', arrived_at = $2
		WHERE token = $1 AND status = 'started'
	`, token, s.clk.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to confirm arrival: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &quest.ArrivalResult{Success: false, Message: "Token already used"}, nil
	}

	kind := campaign.KindTime
	description := ""
	_, tierSpec := s.cfg.ResolveTier(economy.DefaultTier)
	rewardTime := tierSpec.DwellSeconds

	target, err := s.campaigns.GetByPlaceID(ctx, q.TargetPlaceID)
	if err != nil {
		return nil, err
	}
	if target != nil {
		kind = target.QuestKind
		description = target.Description
		_, tierSpec = s.cfg.ResolveTier(target.Tier)
		rewardTime = target.RewardTimeRequired
	}

	return &quest.ArrivalResult{
		Success:            true,
		QuestKind:          string(kind),
		Description:        description,
		DwellSeconds:       tierSpec.DwellSeconds,
		RewardTimeRequired: rewardTime,
	}, nil
}

// PollDwell is the idempotent traffic check the target game polls. Two
// thresholds fire off the arrival stamp: the tier dwell time triggers the
// source payout (exactly once, via the payout_processed guard), the reward
// time triggers the player's own completion.
func (s *QuestService) PollDwell(ctx context.Context, token string) (*quest.TrafficResult, error) {
	q, err := s.getByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return &quest.TrafficResult{Success: false, Message: "Token invalid"}, nil
	}
	if q.Status == quest.StatusStarted || q.ArrivedAt == nil {
		return &quest.TrafficResult{Success: false, Message: "Not arrived yet"}, nil
	}

	target, err := s.campaigns.GetByPlaceID(ctx, q.TargetPlaceID)
	if err != nil {
		return nil, err
	}

	kind := campaign.KindTime
	tier, tierSpec := s.cfg.ResolveTier(economy.DefaultTier)
	rewardTime := tierSpec.DwellSeconds
	if target != nil {
		kind = target.QuestKind
		tier, tierSpec = s.cfg.ResolveTier(target.Tier)
		rewardTime = target.RewardTimeRequired
	}

	elapsed := s.clk.Since(*q.ArrivedAt)
	dwell := time.Duration(tierSpec.DwellSeconds) * time.Second
	reward := time.Duration(rewardTime) * time.Second

	if elapsed >= dwell && !q.PayoutProcessed {
		tag, err := s.db.Exec(ctx, `
			UPDATE quests SET payout_processed = true
			WHERE token = $1 AND payout_processed = false
		`, token)
		if err != nil {
			return nil, fmt.Errorf("failed to mark payout processed: %w", err)
		}
		if tag.RowsAffected() == 1 {
			s.processPayout(ctx, q, tierSpec)
		}
	}

	if elapsed < reward {
		remaining := int(reward.Seconds() - elapsed.Seconds())
		if remaining < 1 {
			remaining = 1
		}
		return &quest.TrafficResult{
			Success:          false,
			QuestCompleted:   false,
			RemainingSeconds: remaining,
			Message:          fmt.Sprintf("%d seconds left", remaining),
		}, nil
	}

	if !q.TrafficValid {
		newStatus := quest.StatusArrived
		var completedAt *time.Time
		if kind == campaign.KindTime {
			newStatus = quest.StatusCompleted
			now := s.clk.Now()
			completedAt = &now
		}
		tag, err := s.db.Exec(ctx, `
			UPDATE quests
			SET traffic_valid = true, completed_tier = $2, status = $3, completed_at = COALESCE($4, completed_at)
			WHERE token = $1 AND traffic_valid = false
		`, token, tier, newStatus, completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to validate traffic: %w", err)
		}
		if tag.RowsAffected() == 1 && kind == campaign.KindTime {
			questsCompleted.Inc()
		}
		q.Status = newStatus
	}

	if kind == campaign.KindTime || q.Status == quest.StatusCompleted || q.Status == quest.StatusClaimed {
		return &quest.TrafficResult{Success: true, QuestCompleted: true, Message: "Quest completed"}, nil
	}
	return &quest.TrafficResult{Success: true, QuestCompleted: false, Message: "Time requirement met, complete the task"}, nil
}

// processPayout consumes one inventory unit from the target campaign and
// credits the source owner. Runs only for the poll that won the
// payout_processed flip. Exhausted inventory or an unresolvable source owner
// forfeits the payout but never fails the player's quest.
func (s *QuestService) processPayout(ctx context.Context, q *quest.Quest, tierSpec economy.Tier) {
	tag, err := s.db.Exec(ctx, `
		UPDATE campaigns
		SET remaining_visits = remaining_visits - 1, updated_at = now()
		WHERE place_id = $1 AND remaining_visits > 0
	`, q.TargetPlaceID)
	if err != nil {
		log.Printf("quests: inventory decrement failed for place %d: %v", q.TargetPlaceID, err)
		payoutsForfeited.Inc()
		return
	}
	if tag.RowsAffected() == 0 {
		// Inventory ran out between start and dwell completion. The player
		// still gets their quest; the source just is not paid.
		payoutsForfeited.Inc()
		return
	}

	sourceOwner, ok := s.campaigns.ResolveOrCreateSource(ctx, q.SourcePlaceID)
	if !ok {
		log.Printf("quests: no owner resolved for source place %d, payout forfeited", q.SourcePlaceID)
		payoutsForfeited.Inc()
		return
	}

	if err := s.ledger.Credit(ctx, sourceOwner, owner.BalanceReal, tierSpec.PayoutPerVisit); err != nil {
		log.Printf("quests: payout credit failed for owner %d: %v", sourceOwner, err)
		return
	}
	payoutsProcessed.Inc()

	body := fmt.Sprintf("You earned %d credits for a verified visit from place %d.", tierSpec.PayoutPerVisit, q.SourcePlaceID)
	if err := s.notifs.Notify(ctx, sourceOwner, notification.KindPayoutReceived, "Payout received", body); err != nil {
		log.Printf("quests: failed to notify owner %d: %v", sourceOwner, err)
	}
}

// CompleteAction finishes an action-kind quest. The dwell validation is a
// floor, not a sufficient condition: without traffic_valid this is a no-op
// failure.
func (s *QuestService) CompleteAction(ctx context.Context, token string) (*quest.ActionResult, error) {
	q, err := s.getByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return &quest.ActionResult{Success: false, Message: "Token invalid"}, nil
	}
	if !q.TrafficValid {
		return &quest.ActionResult{Success: false, Message: "Dwell time not validated yet"}, nil
	}
	if q.Status == quest.StatusCompleted || q.Status == quest.StatusClaimed {
		return &quest.ActionResult{Success: true, Message: "Already completed"}, nil
	}

	target, err := s.campaigns.GetByPlaceID(ctx, q.TargetPlaceID)
	if err != nil {
		return nil, err
	}
	if target != nil && target.QuestKind == campaign.KindTime {
		return &quest.ActionResult{Success: true, Message: "Already completed"}, nil
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE quests SET status = 'completed', completed_at = $2
		WHERE token = $1 AND status = 'arrived' AND traffic_valid = true
	`, token, s.clk.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to complete action quest: %w", err)
	}
	if tag.RowsAffected() == 1 {
		questsCompleted.Inc()
	}

	return &quest.ActionResult{Success: true, Message: "Task completed"}, nil
}

// Claim flushes the player's completed quests that originated from the
// calling game, flipping them to claimed in one statement so repeated calls
// can never hand out the same quest twice.
func (s *QuestService) Claim(ctx context.Context, req *quest.ClaimRequest) (*quest.ClaimResult, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE quests SET status = 'claimed', claimed_at = $3
		WHERE player_id = $1 AND source_place_id = $2 AND status = 'completed'
		RETURNING completed_tier
	`, req.PlayerID, req.CurrentPlaceID, s.clk.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim rewards: %w", err)
	}
	defer rows.Close()

	tiers := []int{}
	for rows.Next() {
		var tier *int
		if err := rows.Scan(&tier); err != nil {
			return nil, fmt.Errorf("failed to scan claimed tier: %w", err)
		}
		if tier == nil {
			t := economy.DefaultTier
			tier = &t
		}
		tiers = append(tiers, *tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read claimed quests: %w", err)
	}

	return &quest.ClaimResult{Success: true, Tiers: tiers, Count: len(tiers)}, nil
}
