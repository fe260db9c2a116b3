package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"questNetAPI/internal/clock"
	"questNetAPI/internal/economy"
	"questNetAPI/internal/quest"
)

// EligibilityService computes the advertisable campaign set for one player.
// Three rules stack on top of "status = active":
//   - a campaign the player has an unexpired open journey into is always
//     offered, so the client can resume it, regardless of inventory;
//   - otherwise inventory must be positive and the daily cap not reached;
//   - a player who already completed a campaign is only re-offered it after
//     the owner buys a fresh batch (last_refill_at past the last completion).
type EligibilityService struct {
	db  *pgxpool.Pool
	clk clock.Clock
	cfg economy.Config
}

func NewEligibilityService(db *pgxpool.Pool, clk clock.Clock, cfg economy.Config) *EligibilityService {
	return &EligibilityService{db: db, clk: clk, cfg: cfg}
}

func (s *EligibilityService) AvailableQuests(ctx context.Context, playerID int64) ([]quest.AvailableQuest, error) {
	query := `
		SELECT
			c.place_id,
			c.name,
			c.description,
			c.tier,
			c.quest_kind,
			c.reward_time_required,
			COALESCE(open.token, '') AS resume_token,

			-- Completed visits against this campaign today, for the daily cap.
			(SELECT count(*)
			 FROM quests q
			 WHERE q.target_place_id = c.place_id
			   AND q.traffic_valid = true
			   AND q.created_at >= $2) AS completed_today,

			-- The player's most recent completion, for the batch rule.
			(SELECT max(COALESCE(q.completed_at, q.claimed_at))
			 FROM quests q
			 WHERE q.player_id = $1
			   AND q.target_place_id = c.place_id
			   AND q.status IN ('completed', 'claimed')) AS last_done,

			c.remaining_visits,
			c.last_refill_at
		FROM campaigns c
		LEFT JOIN LATERAL (
			SELECT q.token
			FROM quests q
			WHERE q.player_id = $1
			  AND q.target_place_id = c.place_id
			  AND q.status IN ('started', 'arrived')
			  -- a started token past the TTL is dead, not resumable
			  AND (q.status = 'arrived' OR q.created_at > $3)
			LIMIT 1
		) open ON true
		WHERE c.status = 'active'
		ORDER BY c.place_id
	`

	rows, err := s.db.Query(ctx, query, playerID, utcDayStart(s.clk.Now()), s.clk.Now().Add(-s.cfg.QuestTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to query available quests: %w", err)
	}
	defer rows.Close()

	available := []quest.AvailableQuest{}
	for rows.Next() {
		var (
			aq              quest.AvailableQuest
			resumeToken     string
			completedToday  int
			lastDone        *time.Time
			remainingVisits int64
			lastRefillAt    *time.Time
		)
		if err := rows.Scan(
			&aq.PlaceID,
			&aq.Name,
			&aq.Description,
			&aq.Tier,
			&aq.QuestKind,
			&aq.RewardTimeRequired,
			&resumeToken,
			&completedToday,
			&lastDone,
			&remainingVisits,
			&lastRefillAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan available quest: %w", err)
		}

		aq.InFlight = resumeToken != ""
		aq.ResumeToken = resumeToken

		if aq.InFlight {
			available = append(available, aq)
			continue
		}
		if !Offerable(remainingVisits, completedToday, s.cfg.DailyVisitCap, lastDone, lastRefillAt) {
			continue
		}

		available = append(available, aq)
	}
	return available, rows.Err()
}

// Offerable is the inventory/batch decision for a player with no open
// journey into the campaign: positive inventory, daily cap not reached, and
// a refill newer than the player's last completion if they played before.
func Offerable(remainingVisits int64, completedToday, dailyCap int, lastDone, lastRefillAt *time.Time) bool {
	if remainingVisits <= 0 {
		return false
	}
	if completedToday >= dailyCap {
		return false
	}
	if lastDone != nil && (lastRefillAt == nil || !lastRefillAt.After(*lastDone)) {
		return false
	}
	return true
}
