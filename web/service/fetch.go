package service

import (
	"fmt"

	"github.com/satyogainstitute/portal/database/model"
)

// FetchError is the structured failure of one upstream call. Network
// errors carry Status 0; HTTP failures carry the status and raw body.
type FetchError struct {
	Endpoint string
	Status   int
	Body     string
	Msg      string
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s: %s", e.Endpoint, e.Msg)
	}
	return fmt.Sprintf("fetch %s: status %d: %s", e.Endpoint, e.Status, e.Msg)
}

// TierError is the backend's distinguished "upgrade required" signal,
// kept separate from generic failures so pages can render an upsell
// instead of an error panel.
type TierError struct {
	RequiredTier model.Tier
	Msg          string
}

func (e *TierError) Error() string {
	return fmt.Sprintf("membership tier %s required: %s", e.RequiredTier, e.Msg)
}
