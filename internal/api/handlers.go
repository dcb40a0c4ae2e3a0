package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fundhive-network/fundhive/internal/domain"
	"github.com/fundhive-network/fundhive/internal/engine"
)

// ─── Request Parsing ────────────────────────────────────────────────────────

func pathID(r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func pathIndex(r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	return index, err == nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// ─── Campaign Handlers ──────────────────────────────────────────────────────

// POST /api/campaigns
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var in engine.CampaignInput
	if !decodeBody(w, r, &in) {
		return
	}
	id, err := s.engine.CreateCampaign(caller(r), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id": id,
	})
}

// POST /api/campaigns/batch
func (s *Server) handleCreateCampaignsBatch(w http.ResponseWriter, r *http.Request) {
	var ins []engine.CampaignInput
	if !decodeBody(w, r, &ins) {
		return
	}
	res, err := s.engine.CreateCampaignsBatch(caller(r), ins)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/campaigns?offset=&limit=
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": s.engine.CampaignsPaginated(offset, limit),
		"total":     s.engine.CampaignCount(),
	})
}

// GET /api/campaigns/active
func (s *Server) handleActiveCampaigns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": s.engine.ActiveCampaigns(),
	})
}

// GET /api/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	c, err := s.engine.GetCampaign(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GET /api/campaigns/{id}/details?offset=&limit=
func (s *Server) handleCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	details, err := s.engine.GetCampaignDetails(id, queryInt(r, "offset", 0), queryInt(r, "limit", 50))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// POST /api/campaigns/{id}/donate
func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	var body struct {
		Amount domain.Amount `json:"amount"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.engine.Donate(caller(r), id, body.Amount); err != nil {
		writeEngineError(w, err)
		return
	}
	c, err := s.engine.GetCampaign(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"raised": c.Raised,
		"state":  c.State,
	})
}

// POST /api/campaigns/{id}/withdraw
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if err := s.engine.Withdraw(caller(r), id); err != nil {
		writeEngineError(w, err)
		return
	}
	c, err := s.engine.GetCampaign(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": c.State,
	})
}

// POST /api/campaigns/withdraw/batch
func (s *Server) handleWithdrawBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []uint64 `json:"ids"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := s.engine.WithdrawBatch(caller(r), body.IDs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/campaigns/{id}/cancel
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if err := s.engine.Cancel(caller(r), id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"state": string(domain.StateFailed),
	})
}

// POST /api/campaigns/{id}/refund
func (s *Server) handleClaimRefund(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if err := s.engine.ClaimRefund(caller(r), id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "refunded",
	})
}

// ─── Matching Handlers ──────────────────────────────────────────────────────

// POST /api/matching/fund
func (s *Server) handleFundPool(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount domain.Amount `json:"amount"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.engine.FundMatchingPool(caller(r), body.Amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance": s.engine.PoolBalance(),
	})
}

// GET /api/matching/pool
func (s *Server) handlePoolBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":       s.engine.PoolBalance(),
		"current_round": s.engine.CurrentRound(),
	})
}

// POST /api/matching/rounds
func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pool          domain.Amount `json:"pool"`
		DurationHours int           `json:"duration_hours"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	id, err := s.engine.CreateMatchingRound(caller(r), body.Pool, time.Duration(body.DurationHours)*time.Hour)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id": id,
	})
}

// GET /api/matching/rounds/{id}
func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}
	round, err := s.engine.GetRound(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// POST /api/matching/rounds/{id}/distribute
func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}
	if err := s.engine.DistributeMatching(caller(r), id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "distributed",
	})
}

// GET /api/campaigns/{id}/matching/estimate
func (s *Server) handleEstimateMatching(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	estimate, err := s.engine.EstimateMatching(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"estimate": estimate,
	})
}

// ─── Milestone Handlers ─────────────────────────────────────────────────────

// POST /api/campaigns/{id}/milestones
func (s *Server) handleAddMilestones(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	var ins []domain.MilestoneInput
	if !decodeBody(w, r, &ins) {
		return
	}
	if err := s.engine.AddMilestones(caller(r), id, ins); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"milestones": len(ins),
	})
}

// GET /api/campaigns/{id}/milestones
func (s *Server) handleGetMilestones(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	ms, err := s.engine.GetMilestones(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"milestones": ms,
	})
}

// POST /api/campaigns/{id}/milestones/{index}/activate
func (s *Server) handleActivateVoting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	index, ok := pathIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid milestone index")
		return
	}
	if err := s.engine.ActivateMilestoneVoting(caller(r), id, index); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "voting",
	})
}

// POST /api/campaigns/{id}/milestones/{index}/vote
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	index, ok := pathIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid milestone index")
		return
	}
	var body struct {
		Approve bool `json:"approve"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.engine.VoteOnMilestone(caller(r), id, index, body.Approve); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "voted",
	})
}

// POST /api/campaigns/{id}/milestones/{index}/release
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	index, ok := pathIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid milestone index")
		return
	}
	if err := s.engine.ReleaseMilestoneFunds(caller(r), id, index); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "released",
	})
}

// ─── Donor & Event Handlers ─────────────────────────────────────────────────

// GET /api/donors/{account}/stats
func (s *Server) handleDonorStats(w http.ResponseWriter, r *http.Request) {
	account := domain.AccountID(chi.URLParam(r, "account"))
	if account == domain.ZeroAccount {
		writeError(w, http.StatusBadRequest, "missing account")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.DonorStats(account))
}

// GET /api/leaderboard?limit=
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"donors": s.engine.Leaderboard(queryInt(r, "limit", 10)),
	})
}

// GET /api/events?limit=
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": s.engine.Events(queryInt(r, "limit", 100)),
		"total":  s.engine.EventCount(),
	})
}
