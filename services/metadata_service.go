package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// GameMetadata is what the upstream games directory knows about a place:
// who owns it and how much organic traffic it has.
type GameMetadata struct {
	OwnerID    int64  `json:"ownerId"`
	Name       string `json:"name"`
	VisitCount int64  `json:"visits"`
}

// GameMetadataResolver is the lookup contract the registry and quest services
// consume. Resolution is best-effort: nil means "could not determine", and
// callers must degrade safely (pending status, forfeited payout).
type GameMetadataResolver interface {
	ResolveGame(ctx context.Context, placeID int64) *GameMetadata
}

type GameMetadataService struct {
	baseURL    string
	httpClient *http.Client
}

func NewGameMetadataService() *GameMetadataService {
	baseURL := os.Getenv("GAME_METADATA_API_URL")
	if baseURL == "" {
		baseURL = "https://games.roproxy.com"
		log.Println("GAME_METADATA_API_URL not set, using default games API")
	}

	return &GameMetadataService{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// ResolveGame fetches owner and visit count for a place. Any transport,
// status, or decode failure returns nil; the network must keep advertising
// even when the directory is down.
func (s *GameMetadataService) ResolveGame(ctx context.Context, placeID int64) *GameMetadata {
	url := fmt.Sprintf("%s/v1/games/%d", s.baseURL, placeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Printf("metadata: failed to build request for place %d: %v", placeID, err)
		return nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("metadata: lookup failed for place %d: %v", placeID, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("metadata: lookup for place %d returned status %d", placeID, resp.StatusCode)
		return nil
	}

	var meta GameMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		log.Printf("metadata: failed to decode response for place %d: %v", placeID, err)
		return nil
	}

	return &meta
}
