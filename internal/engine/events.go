package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/fundhive-network/fundhive/internal/domain"
)

// ─── Domain Events ──────────────────────────────────────────────────────────
// Every committed mutation appends exactly one event per observable
// effect to an ordered, append-only log. Events are the engine's only
// side channel: best-effort failures (receipt mints) surface here and
// nowhere else.

// EventType names a domain event.
type EventType string

const (
	EventCampaignCreated           EventType = "CampaignCreated"
	EventDonationReceived          EventType = "DonationReceived"
	EventCampaignStateChanged      EventType = "CampaignStateChanged"
	EventFundsWithdrawn            EventType = "FundsWithdrawn"
	EventCampaignCancelled         EventType = "CampaignCancelled"
	EventRefundClaimed             EventType = "RefundClaimed"
	EventMatchingPoolFunded        EventType = "MatchingPoolFunded"
	EventMatchingRoundCreated      EventType = "MatchingRoundCreated"
	EventMatchingDistributed       EventType = "MatchingDistributed"
	EventMilestonesAdded           EventType = "MilestonesAdded"
	EventMilestoneVotingActivated  EventType = "MilestoneVotingActivated"
	EventMilestoneVoted            EventType = "MilestoneVoted"
	EventMilestoneFundsReleased    EventType = "MilestoneFundsReleased"
	EventReceiptMintFailed         EventType = "ReceiptMintFailed"
)

// Event is one entry in the append-only log. Zero-valued fields are
// omitted from the JSON form; Campaign, Round, and Account are the
// indexable topics.
type Event struct {
	ID       string               `json:"id"`
	Type     EventType            `json:"type"`
	Time     time.Time            `json:"time"`
	Campaign uint64               `json:"campaign,omitempty"`
	Round    uint64               `json:"round,omitempty"`
	Account  domain.AccountID     `json:"account,omitempty"`
	Amount   domain.Amount        `json:"amount,omitempty"`
	Index    int                  `json:"index,omitempty"` // milestone index
	State    domain.CampaignState `json:"state,omitempty"`
	Note     string               `json:"note,omitempty"`
}

// emit stamps and appends an event. Persistence of the log is
// best-effort journaling: a store failure here must not unwind a
// mutation that has already committed, so it is absorbed.
func (e *Engine) emit(ev Event) {
	ev.ID = uuid.NewString()
	ev.Time = e.now()
	e.events = append(e.events, ev)
	eventsEmitted.WithLabelValues(string(ev.Type)).Inc()
	if e.store != nil {
		_ = e.store.AppendEvent(ev)
	}
}

// Events returns the most recent events, newest last. limit <= 0
// returns the whole log.
func (e *Engine) Events(limit int) []Event {
	if limit <= 0 || limit > len(e.events) {
		limit = len(e.events)
	}
	out := make([]Event, limit)
	copy(out, e.events[len(e.events)-limit:])
	return out
}

// EventCount returns the current log length.
func (e *Engine) EventCount() int { return len(e.events) }
