package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"questNetAPI/internal/economy"
	"questNetAPI/internal/owner"
)

// LedgerService owns the owner accounts: the real and promotional balances
// and the API key issued on first contact. Every mutation is a single
// conditional UPDATE so concurrent debits can never overdraw an account.
type LedgerService struct {
	db  *pgxpool.Pool
	cfg economy.Config
}

func NewLedgerService(db *pgxpool.Pool, cfg economy.Config) *LedgerService {
	return &LedgerService{db: db, cfg: cfg}
}

func newAPIKey() string {
	return "SK_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// EnsureOwner lazily creates the account on first contact, granting the
// one-time promotional credit. ON CONFLICT DO NOTHING makes the grant
// exactly-once under concurrent first touches.
func (s *LedgerService) EnsureOwner(ctx context.Context, ownerID int64) (*owner.Owner, error) {
	insertQuery := `
		INSERT INTO owners (owner_id, api_key, real_balance, promotional_balance)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (owner_id) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, insertQuery, ownerID, newAPIKey(), s.cfg.InitialPromoGrant); err != nil {
		return nil, fmt.Errorf("failed to ensure owner account: %w", err)
	}

	var o owner.Owner
	selectQuery := `
		SELECT owner_id, api_key, real_balance, promotional_balance, created_at, updated_at
		FROM owners
		WHERE owner_id = $1
	`
	err := s.db.QueryRow(ctx, selectQuery, ownerID).Scan(
		&o.OwnerID,
		&o.APIKey,
		&o.RealBalance,
		&o.PromotionalBalance,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner account: %w", err)
	}

	return &o, nil
}

// Get returns the account balances, creating the account (and persisting the
// first-touch grant) if this owner has never been seen.
func (s *LedgerService) Get(ctx context.Context, ownerID int64) (*owner.Owner, error) {
	return s.EnsureOwner(ctx, ownerID)
}

// Credit adds a positive amount to one balance bucket, creating the account
// if absent. Used by the payout path and the admin top-up endpoint.
func (s *LedgerService) Credit(ctx context.Context, ownerID int64, kind owner.BalanceKind, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if !kind.Valid() {
		return fmt.Errorf("unknown balance kind %q", kind)
	}

	if _, err := s.EnsureOwner(ctx, ownerID); err != nil {
		return err
	}

	column := "real_balance"
	if kind == owner.BalancePromotional {
		column = "promotional_balance"
	}

	query := fmt.Sprintf(`
		UPDATE owners
		SET %s = %s + $2, updated_at = now()
		WHERE owner_id = $1
	`, column, column)

	if _, err := s.db.Exec(ctx, query, ownerID, amount); err != nil {
		return fmt.Errorf("failed to credit owner %d: %w", ownerID, err)
	}
	return nil
}

// DebitMixed pays totalCost preferring promotional credit, real credit for
// the remainder. The whole debit is one guarded UPDATE: either both buckets
// move together or nothing moves, even under concurrent purchases.
func (s *LedgerService) DebitMixed(ctx context.Context, ownerID int64, totalCost int64) (*owner.DebitResult, error) {
	if totalCost <= 0 {
		return nil, fmt.Errorf("debit cost must be positive, got %d", totalCost)
	}

	if _, err := s.EnsureOwner(ctx, ownerID); err != nil {
		return nil, err
	}

	query := `
		WITH before AS (
			SELECT promotional_balance AS promo
			FROM owners
			WHERE owner_id = $1
			FOR UPDATE
		)
		UPDATE owners o
		SET promotional_balance = o.promotional_balance - LEAST(o.promotional_balance, $2::bigint),
		    real_balance = o.real_balance - ($2::bigint - LEAST(o.promotional_balance, $2::bigint)),
		    updated_at = now()
		FROM before
		WHERE o.owner_id = $1
		  AND o.promotional_balance + o.real_balance >= $2::bigint
		RETURNING before.promo, o.promotional_balance, o.real_balance
	`

	var promoBefore, promoAfter, realAfter int64
	err := s.db.QueryRow(ctx, query, ownerID, totalCost).Scan(&promoBefore, &promoAfter, &realAfter)
	if err == pgx.ErrNoRows {
		// Insufficient funds: no mutation happened, report the breakdown.
		o, getErr := s.Get(ctx, ownerID)
		if getErr != nil {
			return nil, getErr
		}
		return &owner.DebitResult{
			Paid:               false,
			PromotionalBalance: o.PromotionalBalance,
			RealBalance:        o.RealBalance,
			Shortfall:          totalCost - (o.PromotionalBalance + o.RealBalance),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit owner %d: %w", ownerID, err)
	}

	promoSpent, realSpent := SplitDebit(promoBefore, totalCost)
	return &owner.DebitResult{
		Paid:               true,
		PromoSpent:         promoSpent,
		RealSpent:          realSpent,
		PromotionalBalance: promoAfter,
		RealBalance:        realAfter,
	}, nil
}

// VerifyAPIKey resolves a game-server API key to the owner it was issued to.
// Implements the middleware.APIKeyVerifier contract.
func (s *LedgerService) VerifyAPIKey(ctx context.Context, key string) (int64, bool) {
	if key == "" {
		return 0, false
	}
	var ownerID int64
	err := s.db.QueryRow(ctx, `SELECT owner_id FROM owners WHERE api_key = $1`, key).Scan(&ownerID)
	if err != nil {
		return 0, false
	}
	return ownerID, true
}

// SplitDebit is the promo-first spend order: promotional credit covers as
// much of the cost as it can, real credit pays the remainder.
func SplitDebit(promoBalance, totalCost int64) (promoSpent, realSpent int64) {
	promoSpent = promoBalance
	if totalCost < promoSpent {
		promoSpent = totalCost
	}
	return promoSpent, totalCost - promoSpent
}
