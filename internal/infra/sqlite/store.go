package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fundhive-network/fundhive/internal/domain"
	"github.com/fundhive-network/fundhive/internal/engine"
)

// execer is the Exec surface shared by *sql.DB and *sql.Tx, so row
// writes can run standalone or inside a transaction.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// inTx runs fn inside one transaction, rolling back on error.
func (db *DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ─── Campaign Operations ────────────────────────────────────────────────────

// SaveCampaign inserts or fully replaces one campaign row.
func (db *DB) SaveCampaign(c *domain.Campaign) error {
	return saveCampaign(db.db, c)
}

// CommitCampaign writes a new campaign and, when it enrolled in a
// matching round at creation, the round row. Both commit or neither.
func (db *DB) CommitCampaign(c *domain.Campaign, r *domain.MatchingRound) error {
	return db.inTx(func(tx *sql.Tx) error {
		if err := saveCampaign(tx, c); err != nil {
			return err
		}
		if r != nil {
			return saveRound(tx, r)
		}
		return nil
	})
}

func saveCampaign(ex execer, c *domain.Campaign) error {
	milestones, err := json.Marshal(c.Milestones)
	if err != nil {
		return fmt.Errorf("marshal milestones: %w", err)
	}
	_, err = ex.Exec(`
		INSERT INTO campaigns (id, owner, title, description, goal, raised, deadline, state,
			beneficiary, donation_count, matching_round, matching_amount, milestone_mode,
			milestones_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			raised          = excluded.raised,
			state           = excluded.state,
			donation_count  = excluded.donation_count,
			matching_round  = excluded.matching_round,
			matching_amount = excluded.matching_amount,
			milestone_mode  = excluded.milestone_mode,
			milestones_json = excluded.milestones_json
	`, int64(c.ID), string(c.Owner), c.Title, c.Description, int64(c.Goal), int64(c.Raised),
		c.Deadline.Format(time.RFC3339Nano), string(c.State), string(c.Beneficiary),
		int64(c.DonationCount), int64(c.MatchingRound), int64(c.MatchingAmount),
		boolInt(c.MilestoneMode), string(milestones), c.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// LoadCampaigns reads every campaign, ordered by id.
func (db *DB) LoadCampaigns() ([]domain.Campaign, error) {
	rows, err := db.db.Query(`
		SELECT id, owner, title, description, goal, raised, deadline, state,
			beneficiary, donation_count, matching_round, matching_amount, milestone_mode,
			milestones_json, created_at
		FROM campaigns ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var (
			c                    domain.Campaign
			id, goal, raised     int64
			count, round, match  int64
			mode                 int
			deadline, created    string
			milestonesJSON       string
			owner, state, benefi string
		)
		if err := rows.Scan(&id, &owner, &c.Title, &c.Description, &goal, &raised,
			&deadline, &state, &benefi, &count, &round, &match, &mode,
			&milestonesJSON, &created); err != nil {
			return nil, err
		}
		c.ID = uint64(id)
		c.Owner = domain.AccountID(owner)
		c.Goal = domain.Amount(goal)
		c.Raised = domain.Amount(raised)
		c.State = domain.CampaignState(state)
		c.Beneficiary = domain.AccountID(benefi)
		c.DonationCount = uint64(count)
		c.MatchingRound = uint64(round)
		c.MatchingAmount = domain.Amount(match)
		c.MilestoneMode = mode == 1
		if err := json.Unmarshal([]byte(milestonesJSON), &c.Milestones); err != nil {
			return nil, fmt.Errorf("unmarshal milestones for campaign %d: %w", id, err)
		}
		if c.Deadline, err = time.Parse(time.RFC3339Nano, deadline); err != nil {
			return nil, fmt.Errorf("parse deadline for campaign %d: %w", id, err)
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at for campaign %d: %w", id, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Donation Operations ────────────────────────────────────────────────────

// CommitDonation writes one ledger entry together with the updated
// campaign row and, when the donation enrolled the campaign in a
// matching round, the round row. All writes commit or none do.
func (db *DB) CommitDonation(c *domain.Campaign, d domain.Donation, r *domain.MatchingRound) error {
	return db.inTx(func(tx *sql.Tx) error {
		if err := insertDonation(tx, c.ID, d); err != nil {
			return err
		}
		if err := saveCampaign(tx, c); err != nil {
			return err
		}
		if r != nil {
			return saveRound(tx, r)
		}
		return nil
	})
}

func insertDonation(ex execer, campaignID uint64, d domain.Donation) error {
	_, err := ex.Exec(`
		INSERT INTO donations (campaign_id, donor, amount, timestamp)
		VALUES (?, ?, ?, ?)
	`, int64(campaignID), string(d.Donor), int64(d.Amount), d.Timestamp.Format(time.RFC3339Nano))
	return err
}

// LoadDonations reads every ledger, keyed by campaign, in append order.
func (db *DB) LoadDonations() (map[uint64][]domain.Donation, error) {
	rows, err := db.db.Query(`
		SELECT campaign_id, donor, amount, timestamp FROM donations ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64][]domain.Donation)
	for rows.Next() {
		var (
			campaignID, amount int64
			donor, ts          string
		)
		if err := rows.Scan(&campaignID, &donor, &amount, &ts); err != nil {
			return nil, err
		}
		d := domain.Donation{Donor: domain.AccountID(donor), Amount: domain.Amount(amount)}
		if d.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse donation timestamp: %w", err)
		}
		out[uint64(campaignID)] = append(out[uint64(campaignID)], d)
	}
	return out, rows.Err()
}

// ─── Matching Round Operations ──────────────────────────────────────────────

// SaveRound inserts or fully replaces one matching round.
func (db *DB) SaveRound(r *domain.MatchingRound) error {
	return saveRound(db.db, r)
}

func saveRound(ex execer, r *domain.MatchingRound) error {
	campaigns, err := json.Marshal(r.Campaigns)
	if err != nil {
		return fmt.Errorf("marshal round campaigns: %w", err)
	}
	_, err = ex.Exec(`
		INSERT INTO matching_rounds (id, pool, end_time, distributed, campaigns_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			distributed    = excluded.distributed,
			campaigns_json = excluded.campaigns_json
	`, int64(r.ID), int64(r.Pool), r.EndTime.Format(time.RFC3339Nano), boolInt(r.Distributed), string(campaigns))
	return err
}

// LoadRounds reads every matching round, ordered by id.
func (db *DB) LoadRounds() ([]domain.MatchingRound, error) {
	rows, err := db.db.Query(`
		SELECT id, pool, end_time, distributed, campaigns_json FROM matching_rounds ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MatchingRound
	for rows.Next() {
		var (
			r             domain.MatchingRound
			id, pool      int64
			distributed   int
			endTime, cjs  string
		)
		if err := rows.Scan(&id, &pool, &endTime, &distributed, &cjs); err != nil {
			return nil, err
		}
		r.ID = uint64(id)
		r.Pool = domain.Amount(pool)
		r.Distributed = distributed == 1
		if err := json.Unmarshal([]byte(cjs), &r.Campaigns); err != nil {
			return nil, fmt.Errorf("unmarshal campaigns for round %d: %w", id, err)
		}
		if r.EndTime, err = time.Parse(time.RFC3339Nano, endTime); err != nil {
			return nil, fmt.Errorf("parse end_time for round %d: %w", id, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── Vote Operations ────────────────────────────────────────────────────────

// SaveVote records one milestone vote.
func (db *DB) SaveVote(campaignID uint64, index int, voter domain.AccountID, weight domain.Amount, approve bool) error {
	_, err := db.db.Exec(`
		INSERT OR IGNORE INTO milestone_votes (campaign_id, milestone_idx, voter, weight, approve)
		VALUES (?, ?, ?, ?, ?)
	`, int64(campaignID), index, string(voter), int64(weight), boolInt(approve))
	return err
}

// LoadVotes reads every recorded vote.
func (db *DB) LoadVotes() ([]engine.VoteRecord, error) {
	rows, err := db.db.Query(`
		SELECT campaign_id, milestone_idx, voter, weight, approve FROM milestone_votes
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.VoteRecord
	for rows.Next() {
		var (
			v                   engine.VoteRecord
			campaignID, weight  int64
			approve             int
			voter               string
		)
		if err := rows.Scan(&campaignID, &v.Index, &voter, &weight, &approve); err != nil {
			return nil, err
		}
		v.Campaign = uint64(campaignID)
		v.Voter = domain.AccountID(voter)
		v.Weight = domain.Amount(weight)
		v.Approve = approve == 1
		out = append(out, v)
	}
	return out, rows.Err()
}

// ─── Refund Claim Operations ────────────────────────────────────────────────

// SaveRefundClaim records one settled refund.
func (db *DB) SaveRefundClaim(campaignID uint64, donor domain.AccountID, amount domain.Amount) error {
	_, err := db.db.Exec(`
		INSERT OR IGNORE INTO refund_claims (campaign_id, donor, amount)
		VALUES (?, ?, ?)
	`, int64(campaignID), string(donor), int64(amount))
	return err
}

// LoadRefundClaims reads every refund-claim marker.
func (db *DB) LoadRefundClaims() ([]engine.ClaimRecord, error) {
	rows, err := db.db.Query(`
		SELECT campaign_id, donor, amount FROM refund_claims
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.ClaimRecord
	for rows.Next() {
		var (
			campaignID, amount int64
			donor              string
		)
		if err := rows.Scan(&campaignID, &donor, &amount); err != nil {
			return nil, err
		}
		out = append(out, engine.ClaimRecord{
			Campaign: uint64(campaignID),
			Donor:    domain.AccountID(donor),
			Amount:   domain.Amount(amount),
		})
	}
	return out, rows.Err()
}

// ─── Pool Balance Operations ────────────────────────────────────────────────

// SavePoolBalance upserts the single-row matching-pool balance.
func (db *DB) SavePoolBalance(balance domain.Amount) error {
	_, err := db.db.Exec(`
		INSERT INTO pool_balance (id, balance) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET balance = excluded.balance
	`, int64(balance))
	return err
}

// LoadPoolBalance reads the matching-pool balance; zero when unset.
func (db *DB) LoadPoolBalance() (domain.Amount, error) {
	var balance int64
	err := db.db.QueryRow(`SELECT balance FROM pool_balance WHERE id = 1`).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return domain.Amount(balance), err
}

// ─── Event Journal Operations ───────────────────────────────────────────────

// AppendEvent journals one event.
func (db *DB) AppendEvent(ev engine.Event) error {
	_, err := db.db.Exec(`
		INSERT OR IGNORE INTO events (id, type, time, campaign_id, round_id, account, amount, idx, state, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, string(ev.Type), ev.Time.Format(time.RFC3339Nano), int64(ev.Campaign),
		int64(ev.Round), string(ev.Account), int64(ev.Amount), ev.Index, string(ev.State), ev.Note)
	return err
}

// EventCount returns the journal length.
func (db *DB) EventCount() (int, error) {
	var count int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}

// ─── Boot Load ──────────────────────────────────────────────────────────────

// Load assembles the full engine snapshot from storage.
func (db *DB) Load() (engine.RestoreState, error) {
	var s engine.RestoreState
	var err error

	if s.Campaigns, err = db.LoadCampaigns(); err != nil {
		return s, fmt.Errorf("load campaigns: %w", err)
	}
	if s.Donations, err = db.LoadDonations(); err != nil {
		return s, fmt.Errorf("load donations: %w", err)
	}
	if s.Rounds, err = db.LoadRounds(); err != nil {
		return s, fmt.Errorf("load rounds: %w", err)
	}
	if s.Votes, err = db.LoadVotes(); err != nil {
		return s, fmt.Errorf("load votes: %w", err)
	}
	if s.Claims, err = db.LoadRefundClaims(); err != nil {
		return s, fmt.Errorf("load refund claims: %w", err)
	}
	if s.PoolBalance, err = db.LoadPoolBalance(); err != nil {
		return s, fmt.Errorf("load pool balance: %w", err)
	}
	return s, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
