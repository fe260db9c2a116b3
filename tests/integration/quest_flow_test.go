package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questNetAPI/internal/campaign"
	"questNetAPI/internal/clock"
	"questNetAPI/internal/economy"
	"questNetAPI/internal/quest"
	"questNetAPI/services"
	"questNetAPI/tests/helpers"
)

// stubResolver stands in for the external games directory.
type stubResolver struct {
	games map[int64]*services.GameMetadata
}

func (s *stubResolver) ResolveGame(ctx context.Context, placeID int64) *services.GameMetadata {
	return s.games[placeID]
}

type testEnv struct {
	clk       *clock.Fixed
	cfg       economy.Config
	ledger    *services.LedgerService
	campaigns *services.CampaignService
	quests    *services.QuestService
	elig      *services.EligibilityService
	notifs    *services.NotificationService
}

func setupEnv(t *testing.T, resolver *stubResolver) *testEnv {
	return setupEnvWithConfig(t, resolver, economy.DefaultConfig())
}

func setupEnvWithConfig(t *testing.T, resolver *stubResolver, cfg economy.Config) *testEnv {
	pool := helpers.SetupTestDB(t)
	t.Cleanup(pool.Close)
	helpers.ResetTables(t, pool)

	clk := clock.NewFixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	notifs := services.NewNotificationService(pool)
	t.Cleanup(notifs.Stop)

	ledger := services.NewLedgerService(pool, cfg)
	campaigns := services.NewCampaignService(pool, ledger, resolver, notifs, clk, cfg)
	quests := services.NewQuestService(pool, campaigns, ledger, notifs, clk, cfg)
	elig := services.NewEligibilityService(pool, clk, cfg)

	return &testEnv{
		clk:       clk,
		cfg:       cfg,
		ledger:    ledger,
		campaigns: campaigns,
		quests:    quests,
		elig:      elig,
		notifs:    notifs,
	}
}

const (
	targetOwner = int64(111)
	sourceOwner = int64(222)
	targetPlace = int64(1001)
	sourcePlace = int64(2002)
	playerID    = int64(42)
)

func registerBothGames(t *testing.T, env *testEnv, targetKind string, rewardTime int) {
	res, err := env.campaigns.Register(context.Background(), &campaign.RegisterRequest{
		OwnerID:             targetOwner,
		PlaceID:             targetPlace,
		Name:                "Obby Tower",
		Description:         "Climb the tower",
		Tier:                1,
		QuestKind:           targetKind,
		RequestedRewardTime: rewardTime,
	})
	require.NoError(t, err)
	require.Equal(t, campaign.StatusActive, res.Status, "popular game should auto-approve")

	_, err = env.campaigns.Register(context.Background(), &campaign.RegisterRequest{
		OwnerID:   sourceOwner,
		PlaceID:   sourcePlace,
		Name:      "Tycoon World",
		Tier:      1,
		QuestKind: "time",
	})
	require.NoError(t, err)
}

func popularGames() *stubResolver {
	return &stubResolver{games: map[int64]*services.GameMetadata{
		targetPlace: {OwnerID: targetOwner, Name: "Obby Tower", VisitCount: 50000},
		sourcePlace: {OwnerID: sourceOwner, Name: "Tycoon World", VisitCount: 50000},
	}}
}

// TestTimeQuestLifecycle walks the happy path end to end: purchase, start,
// arrival, dwell payout, completion, claim.
func TestTimeQuestLifecycle(t *testing.T) {
	env := setupEnv(t, popularGames())
	ctx := context.Background()
	registerBothGames(t, env, "time", 60)

	// Step 1: owner buys one visit with promotional credit.
	purchase, err := env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 1,
	})
	require.NoError(t, err)
	require.True(t, purchase.Success)
	assert.Equal(t, int64(8), purchase.TotalCost)
	assert.Equal(t, int64(8), purchase.PromoSpent)
	assert.Equal(t, int64(0), purchase.RealSpent)
	assert.Equal(t, int64(1), purchase.RemainingVisits)

	o, err := env.ledger.Get(ctx, targetOwner)
	require.NoError(t, err)
	assert.Equal(t, env.cfg.InitialPromoGrant-8, o.PromotionalBalance)

	// Step 2: the campaign is advertisable to the player.
	available, err := env.elig.AvailableQuests(ctx, playerID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, targetPlace, available[0].PlaceID)
	assert.False(t, available[0].InFlight)

	// Step 3: start the quest; a second start reuses the same token.
	start, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	require.True(t, start.Success)
	require.NotEmpty(t, start.Token)

	again, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	assert.Equal(t, start.Token, again.Token)

	// Step 4: arrive at the target game.
	arrival, err := env.quests.ConfirmArrival(ctx, start.Token)
	require.NoError(t, err)
	require.True(t, arrival.Success)
	assert.Equal(t, "time", arrival.QuestKind)
	assert.Equal(t, 60, arrival.DwellSeconds)
	assert.Equal(t, 60, arrival.RewardTimeRequired)

	// A second redeem of the same token is refused.
	rearrival, err := env.quests.ConfirmArrival(ctx, start.Token)
	require.NoError(t, err)
	assert.False(t, rearrival.Success)

	// Step 5: polling before the dwell time reports the remaining seconds.
	early, err := env.quests.PollDwell(ctx, start.Token)
	require.NoError(t, err)
	assert.False(t, early.Success)
	assert.False(t, early.QuestCompleted)
	assert.Equal(t, 60, early.RemainingSeconds)

	// Step 6: after 61s the quest completes, inventory is consumed, and the
	// source owner is paid.
	env.clk.Advance(61 * time.Second)

	done, err := env.quests.PollDwell(ctx, start.Token)
	require.NoError(t, err)
	assert.True(t, done.Success)
	assert.True(t, done.QuestCompleted)

	target, err := env.campaigns.GetByPlaceID(ctx, targetPlace)
	require.NoError(t, err)
	assert.Equal(t, int64(0), target.RemainingVisits)

	src, err := env.ledger.Get(ctx, sourceOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(6), src.RealBalance)

	// Step 7: polling again never pays twice or consumes more inventory.
	for i := 0; i < 3; i++ {
		repeat, err := env.quests.PollDwell(ctx, start.Token)
		require.NoError(t, err)
		assert.True(t, repeat.Success)
		assert.True(t, repeat.QuestCompleted)
	}
	src, err = env.ledger.Get(ctx, sourceOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(6), src.RealBalance)
	target, err = env.campaigns.GetByPlaceID(ctx, targetPlace)
	require.NoError(t, err)
	assert.Equal(t, int64(0), target.RemainingVisits)

	// Step 8: claim from the source game returns the tier once, then never again.
	claim, err := env.quests.Claim(ctx, &quest.ClaimRequest{PlayerID: playerID, CurrentPlaceID: sourcePlace})
	require.NoError(t, err)
	assert.True(t, claim.Success)
	assert.Equal(t, []int{1}, claim.Tiers)

	claim2, err := env.quests.Claim(ctx, &quest.ClaimRequest{PlayerID: playerID, CurrentPlaceID: sourcePlace})
	require.NoError(t, err)
	assert.Empty(t, claim2.Tiers)

	// Step 9: with inventory gone and no open journey, the campaign disappears
	// from the advertisable set.
	available, err = env.elig.AvailableQuests(ctx, playerID)
	require.NoError(t, err)
	assert.Empty(t, available)
}

// TestActionQuestRequiresExplicitCompletion covers the "boss kill" kind:
// dwell validation is a floor, not a sufficient condition.
func TestActionQuestRequiresExplicitCompletion(t *testing.T) {
	env := setupEnv(t, popularGames())
	ctx := context.Background()
	registerBothGames(t, env, "action", 60)

	purchase, err := env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 2,
	})
	require.NoError(t, err)
	require.True(t, purchase.Success)

	start, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	require.True(t, start.Success)

	arrival, err := env.quests.ConfirmArrival(ctx, start.Token)
	require.NoError(t, err)
	assert.Equal(t, "action", arrival.QuestKind)

	// Completing before the dwell validation is refused.
	tooSoon, err := env.quests.CompleteAction(ctx, start.Token)
	require.NoError(t, err)
	assert.False(t, tooSoon.Success)

	env.clk.Advance(61 * time.Second)

	polled, err := env.quests.PollDwell(ctx, start.Token)
	require.NoError(t, err)
	assert.True(t, polled.Success)
	assert.False(t, polled.QuestCompleted, "action quests wait for the explicit completion")

	// The payout fired at dwell time even though the quest is not complete.
	src, err := env.ledger.Get(ctx, sourceOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(6), src.RealBalance)

	completed, err := env.quests.CompleteAction(ctx, start.Token)
	require.NoError(t, err)
	assert.True(t, completed.Success)

	claim, err := env.quests.Claim(ctx, &quest.ClaimRequest{PlayerID: playerID, CurrentPlaceID: sourcePlace})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, claim.Tiers)
}

// TestRewardTimeClampedToTierDwell pins the registration floor: tier 2 dwell
// is 180s, so a requested 10s reward time comes back as 180.
func TestRewardTimeClampedToTierDwell(t *testing.T) {
	env := setupEnv(t, popularGames())
	ctx := context.Background()

	res, err := env.campaigns.Register(ctx, &campaign.RegisterRequest{
		OwnerID:             targetOwner,
		PlaceID:             targetPlace,
		Name:                "Obby Tower",
		Tier:                2,
		QuestKind:           "time",
		RequestedRewardTime: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 180, res.RewardTimeRequired)
	assert.Equal(t, 2, res.Tier)
}

// TestUnknownGameDegradesToPending: a campaign the directory cannot resolve
// is registered pending, never active, and never errors.
func TestUnknownGameDegradesToPending(t *testing.T) {
	env := setupEnv(t, &stubResolver{games: map[int64]*services.GameMetadata{}})
	ctx := context.Background()

	res, err := env.campaigns.Register(ctx, &campaign.RegisterRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Name: "Obby Tower", Tier: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusPending, res.Status)

	// Admin approval flips it active; buying visits now works.
	found, err := env.campaigns.AdminDecide(ctx, targetPlace, true)
	require.NoError(t, err)
	assert.True(t, found)

	c, err := env.campaigns.GetByPlaceID(ctx, targetPlace)
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusActive, c.Status)

	// Re-registration keeps the active status (idempotent upsert).
	res, err = env.campaigns.Register(ctx, &campaign.RegisterRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Name: "Obby Tower v2", Tier: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusActive, res.Status)
}

// TestBatchRuleReoffersAfterRefill: a player who completed a campaign only
// sees it again once the owner buys a fresh batch of visits.
func TestBatchRuleReoffersAfterRefill(t *testing.T) {
	env := setupEnv(t, popularGames())
	ctx := context.Background()
	registerBothGames(t, env, "time", 60)

	_, err := env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 5,
	})
	require.NoError(t, err)

	start, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	_, err = env.quests.ConfirmArrival(ctx, start.Token)
	require.NoError(t, err)

	env.clk.Advance(61 * time.Second)
	_, err = env.quests.PollDwell(ctx, start.Token)
	require.NoError(t, err)

	// Completed: inventory remains, but this player is done with the batch.
	available, err := env.elig.AvailableQuests(ctx, playerID)
	require.NoError(t, err)
	assert.Empty(t, available, "player already played this batch")

	// A different player still sees it.
	other, err := env.elig.AvailableQuests(ctx, playerID+1)
	require.NoError(t, err)
	assert.Len(t, other, 1)

	// Owner tops up later; the campaign reopens for the original player.
	env.clk.Advance(time.Hour)
	_, err = env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 1,
	})
	require.NoError(t, err)

	available, err = env.elig.AvailableQuests(ctx, playerID)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

// TestEligibilityKeepsInFlightVisible: an open journey stays visible even
// with zero inventory so the client can resume it.
func TestEligibilityKeepsInFlightVisible(t *testing.T) {
	env := setupEnv(t, popularGames())
	ctx := context.Background()
	registerBothGames(t, env, "time", 60)

	_, err := env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 1,
	})
	require.NoError(t, err)

	start, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)

	// Drain the inventory out from under the open quest.
	otherStart, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID + 1, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	_, err = env.quests.ConfirmArrival(ctx, otherStart.Token)
	require.NoError(t, err)
	env.clk.Advance(61 * time.Second)
	_, err = env.quests.PollDwell(ctx, otherStart.Token)
	require.NoError(t, err)

	target, err := env.campaigns.GetByPlaceID(ctx, targetPlace)
	require.NoError(t, err)
	require.Equal(t, int64(0), target.RemainingVisits)

	available, err := env.elig.AvailableQuests(ctx, playerID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.True(t, available[0].InFlight)
	assert.Equal(t, start.Token, available[0].ResumeToken)
}

// TestExpiredTokenCannotArrive: a token older than the TTL is refused, and
// the failed redeem retires it so the player can start over.
func TestExpiredTokenCannotArrive(t *testing.T) {
	env := setupEnv(t, popularGames())
	ctx := context.Background()
	registerBothGames(t, env, "time", 60)

	_, err := env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 1,
	})
	require.NoError(t, err)

	start, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)

	env.clk.Advance(25 * time.Hour)

	arrival, err := env.quests.ConfirmArrival(ctx, start.Token)
	require.NoError(t, err)
	assert.False(t, arrival.Success)
	assert.Equal(t, "Token expired", arrival.Message)

	// The dead token stays dead, even when presented again.
	arrival, err = env.quests.ConfirmArrival(ctx, start.Token)
	require.NoError(t, err)
	assert.False(t, arrival.Success)
	assert.Equal(t, "Token expired", arrival.Message)

	// A new start hands out a fresh, redeemable token.
	fresh, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	require.True(t, fresh.Success)
	require.NotEqual(t, start.Token, fresh.Token)

	arrival, err = env.quests.ConfirmArrival(ctx, fresh.Token)
	require.NoError(t, err)
	assert.True(t, arrival.Success)
}

// TestStaleStartedJourneyIsReplaced: a started quest that ages out without
// ever being redeemed must not hold the (player, target) slot, and must not
// be advertised as resumable.
func TestStaleStartedJourneyIsReplaced(t *testing.T) {
	env := setupEnv(t, popularGames())
	ctx := context.Background()
	registerBothGames(t, env, "time", 60)

	_, err := env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 1,
	})
	require.NoError(t, err)

	start, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	require.True(t, start.Success)

	env.clk.Advance(25 * time.Hour)

	// The stale token no longer shows up as an in-flight journey.
	available, err := env.elig.AvailableQuests(ctx, playerID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.False(t, available[0].InFlight)
	assert.Empty(t, available[0].ResumeToken)

	// Starting again retires the stale row and issues a new token.
	again, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	require.True(t, again.Success)
	require.NotEqual(t, start.Token, again.Token)

	arrival, err := env.quests.ConfirmArrival(ctx, again.Token)
	require.NoError(t, err)
	assert.True(t, arrival.Success)
}

// TestDailyCapGatesStartsAndOffers: once a campaign hits its per-day
// completed-visit cap, starts are refused and the campaign stops being
// advertised until the next UTC day.
func TestDailyCapGatesStartsAndOffers(t *testing.T) {
	cfg := economy.DefaultConfig()
	cfg.DailyVisitCap = 1
	env := setupEnvWithConfig(t, popularGames(), cfg)
	ctx := context.Background()
	registerBothGames(t, env, "time", 60)

	_, err := env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 5,
	})
	require.NoError(t, err)

	// One player fills the day's single slot.
	start, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	_, err = env.quests.ConfirmArrival(ctx, start.Token)
	require.NoError(t, err)
	env.clk.Advance(61 * time.Second)
	done, err := env.quests.PollDwell(ctx, start.Token)
	require.NoError(t, err)
	require.True(t, done.QuestCompleted)

	// Everyone else is turned away for the rest of the day.
	blocked, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID + 1, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	assert.False(t, blocked.Success)
	assert.Contains(t, blocked.Message, "Daily limit")

	available, err := env.elig.AvailableQuests(ctx, playerID+1)
	require.NoError(t, err)
	assert.Empty(t, available, "capped campaign must not be advertised")

	// Past UTC midnight the counter resets.
	env.clk.Advance(13 * time.Hour)

	available, err = env.elig.AvailableQuests(ctx, playerID+1)
	require.NoError(t, err)
	assert.Len(t, available, 1)

	reopened, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID + 1, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	assert.True(t, reopened.Success)
}

// TestPayoutForfeitedWhenSourceUnknown: the quest still completes when the
// source game cannot be resolved, the payout is just dropped.
func TestPayoutForfeitedWhenSourceUnknown(t *testing.T) {
	resolver := &stubResolver{games: map[int64]*services.GameMetadata{
		targetPlace: {OwnerID: targetOwner, Name: "Obby Tower", VisitCount: 50000},
	}}
	env := setupEnv(t, resolver)
	ctx := context.Background()

	res, err := env.campaigns.Register(ctx, &campaign.RegisterRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Name: "Obby Tower", Tier: 1, QuestKind: "time",
	})
	require.NoError(t, err)
	require.Equal(t, campaign.StatusActive, res.Status)

	_, err = env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 1,
	})
	require.NoError(t, err)

	unknownSource := int64(9999)
	start, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: unknownSource, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	_, err = env.quests.ConfirmArrival(ctx, start.Token)
	require.NoError(t, err)

	env.clk.Advance(61 * time.Second)
	done, err := env.quests.PollDwell(ctx, start.Token)
	require.NoError(t, err)
	assert.True(t, done.QuestCompleted, "player keeps their quest")

	// Inventory was consumed, but nobody was paid.
	target, err := env.campaigns.GetByPlaceID(ctx, targetPlace)
	require.NoError(t, err)
	assert.Equal(t, int64(0), target.RemainingVisits)
}

// TestSourceAutoRegisteredAsInactiveShell: a resolvable but unregistered
// source gets a shell campaign and the payout.
func TestSourceAutoRegisteredAsInactiveShell(t *testing.T) {
	env := setupEnv(t, popularGames())
	ctx := context.Background()

	res, err := env.campaigns.Register(ctx, &campaign.RegisterRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Name: "Obby Tower", Tier: 1, QuestKind: "time",
	})
	require.NoError(t, err)
	require.Equal(t, campaign.StatusActive, res.Status)

	_, err = env.campaigns.PurchaseVisits(ctx, &campaign.BuyVisitsRequest{
		OwnerID: targetOwner, PlaceID: targetPlace, Amount: 1,
	})
	require.NoError(t, err)

	// sourcePlace is resolvable through the directory but never registered.
	start, err := env.quests.Start(ctx, &quest.StartRequest{
		PlayerID: playerID, SourcePlaceID: sourcePlace, DestinationPlaceID: targetPlace,
	})
	require.NoError(t, err)
	_, err = env.quests.ConfirmArrival(ctx, start.Token)
	require.NoError(t, err)

	env.clk.Advance(61 * time.Second)
	_, err = env.quests.PollDwell(ctx, start.Token)
	require.NoError(t, err)

	src, err := env.ledger.Get(ctx, sourceOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(6), src.RealBalance)

	shell, err := env.campaigns.GetByPlaceID(ctx, sourcePlace)
	require.NoError(t, err)
	require.NotNil(t, shell)
	assert.Equal(t, campaign.StatusInactive, shell.Status)
	assert.Equal(t, sourceOwner, shell.OwnerID)
}
