package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/cascadelabs/feerouter/router/pkg/adapters/damm"
	"github.com/cascadelabs/feerouter/router/pkg/crank"
	"github.com/cascadelabs/feerouter/router/pkg/distribution"
	"github.com/cascadelabs/feerouter/router/pkg/events"
	"github.com/cascadelabs/feerouter/router/pkg/feemath"
	"github.com/cascadelabs/feerouter/router/pkg/policy"
	"github.com/cascadelabs/feerouter/router/pkg/position"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("server: failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses: gate and
// ordering violations are conflicts, bad parameters are 4xx, anything
// else is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, distribution.ErrTooEarly),
		errors.Is(err, distribution.ErrDayAlreadyClosed),
		errors.Is(err, distribution.ErrClockRewind),
		errors.Is(err, distribution.ErrPageOutOfOrder):
		status = http.StatusConflict
	case errors.Is(err, policy.ErrParamOutOfRange),
		errors.Is(err, damm.ErrQuoteMintMismatch),
		errors.Is(err, damm.ErrBaseFeeConfigRejected),
		errors.Is(err, damm.ErrPoolDisabled):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, policy.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, policy.ErrNotFound),
		errors.Is(err, position.ErrNotFound),
		errors.Is(err, position.ErrTreasuryNotFound),
		errors.Is(err, distribution.ErrDayNotFound),
		errors.Is(err, crank.ErrNotInitialized):
		status = http.StatusNotFound
	case errors.Is(err, policy.ErrAlreadyExists),
		errors.Is(err, position.ErrAlreadyInitialized):
		status = http.StatusConflict
	case errors.Is(err, crank.ErrBaseFeeDetected):
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func parseMintParam(r *http.Request) (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(chi.URLParam(r, "quoteMint"))
}

type crankRequest struct {
	Cursor    uint64 `json:"cursor"`
	IsFinal   bool   `json:"is_final"`
	Investors []struct {
		Investor      string `json:"investor"`
		Stream        string `json:"stream"`
		PayoutAccount string `json:"payout_account"`
	} `json:"investors"`
}

func (s *Server) handleCrank(w http.ResponseWriter, r *http.Request) {
	quoteMint, err := parseMintParam(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quote mint"})
		return
	}

	var req crankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	page := distribution.Page{
		Cursor:  req.Cursor,
		IsFinal: req.IsFinal,
	}
	for _, inv := range req.Investors {
		ref := distribution.InvestorRef{}
		if ref.Investor, err = solana.PublicKeyFromBase58(inv.Investor); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid investor key"})
			return
		}
		if ref.Stream, err = solana.PublicKeyFromBase58(inv.Stream); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid stream key"})
			return
		}
		if ref.PayoutAccount, err = solana.PublicKeyFromBase58(inv.PayoutAccount); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payout account key"})
			return
		}
		page.Investors = append(page.Investors, ref)
	}

	result, err := s.cfg.Engine.ProcessPage(r.Context(), quoteMint, page)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type policyRequest struct {
	Authority           string `json:"authority"`
	CreatorAccount      string `json:"creator_account,omitempty"`
	InvestorShareCapBps uint64 `json:"investor_share_cap_bps"`
	DailyCap            uint64 `json:"daily_cap"`
	MinPayout           uint64 `json:"min_payout"`
	Y0                  uint64 `json:"y0"`
}

type policyResponse struct {
	QuoteMint           string `json:"quote_mint"`
	Authority           string `json:"authority"`
	CreatorAccount      string `json:"creator_account"`
	InvestorShareCapBps uint64 `json:"investor_share_cap_bps"`
	DailyCap            uint64 `json:"daily_cap"`
	MinPayout           uint64 `json:"min_payout"`
	Y0                  uint64 `json:"y0"`
}

func policyToResponse(p *policy.Policy) policyResponse {
	return policyResponse{
		QuoteMint:           p.QuoteMint.String(),
		Authority:           p.Authority.String(),
		CreatorAccount:      p.CreatorAccount.String(),
		InvestorShareCapBps: p.InvestorShareCapBps,
		DailyCap:            p.DailyCap,
		MinPayout:           p.MinPayout,
		Y0:                  p.Y0,
	}
}

func (s *Server) handleInitializePolicy(w http.ResponseWriter, r *http.Request) {
	quoteMint, err := parseMintParam(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quote mint"})
		return
	}

	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	authority, err := solana.PublicKeyFromBase58(req.Authority)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid authority key"})
		return
	}
	creator, err := solana.PublicKeyFromBase58(req.CreatorAccount)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid creator account"})
		return
	}

	p, err := s.cfg.Policies.Initialize(r.Context(), quoteMint, authority, creator, policy.Params{
		InvestorShareCapBps: req.InvestorShareCapBps,
		DailyCap:            req.DailyCap,
		MinPayout:           req.MinPayout,
		Y0:                  req.Y0,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cfg.Emitter.Emit(r.Context(), events.PolicyUpdated{QuoteMint: quoteMint, Timestamp: s.nowUnix()})
	s.writeJSON(w, http.StatusCreated, policyToResponse(p))
}

func (s *Server) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	quoteMint, err := parseMintParam(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quote mint"})
		return
	}

	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	authority, err := solana.PublicKeyFromBase58(req.Authority)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid authority key"})
		return
	}

	p, err := s.cfg.Policies.Update(r.Context(), quoteMint, authority, policy.Params{
		InvestorShareCapBps: req.InvestorShareCapBps,
		DailyCap:            req.DailyCap,
		MinPayout:           req.MinPayout,
		Y0:                  req.Y0,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.cfg.Emitter.Emit(r.Context(), events.PolicyUpdated{QuoteMint: quoteMint, Timestamp: s.nowUnix()})
	s.writeJSON(w, http.StatusOK, policyToResponse(p))
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	quoteMint, err := parseMintParam(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quote mint"})
		return
	}
	p, err := s.cfg.Policies.Get(r.Context(), quoteMint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, policyToResponse(p))
}

type initializePositionRequest struct {
	VaultID   string `json:"vault_id"`
	Pool      string `json:"pool"`
	QuoteMint string `json:"quote_mint"`
}

func (s *Server) handleInitializePosition(w http.ResponseWriter, r *http.Request) {
	var req initializePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	params := position.InitializeParams{}
	var err error
	if params.VaultID, err = solana.PublicKeyFromBase58(req.VaultID); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid vault id"})
		return
	}
	if params.Pool, err = solana.PublicKeyFromBase58(req.Pool); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid pool"})
		return
	}
	if params.QuoteMint, err = solana.PublicKeyFromBase58(req.QuoteMint); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quote mint"})
		return
	}

	record, err := s.cfg.Initializer.Initialize(r.Context(), params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"vault_id":         record.VaultID.String(),
		"pool":             record.Pool.String(),
		"position_account": record.PositionAccount.String(),
		"owner_authority":  record.OwnerAuthority.String(),
		"base_mint":        record.BaseMint.String(),
		"quote_mint":       record.QuoteMint.String(),
	})
}

type initializeTreasuryRequest struct {
	TokenAccount string `json:"token_account"`
}

func (s *Server) handleInitializeTreasury(w http.ResponseWriter, r *http.Request) {
	quoteMint, err := parseMintParam(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quote mint"})
		return
	}

	var req initializeTreasuryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	tokenAccount, err := solana.PublicKeyFromBase58(req.TokenAccount)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid token account"})
		return
	}

	t, err := s.cfg.Initializer.InitializeTreasury(r.Context(), quoteMint, tokenAccount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"quote_mint":    t.QuoteMint.String(),
		"token_account": t.TokenAccount.String(),
		"authority":     t.Authority.String(),
	})
}

type dayResponse struct {
	DayIndex           int64  `json:"day_index"`
	OpenedAt           int64  `json:"opened_at"`
	ClaimedThisDay     uint64 `json:"claimed_this_day"`
	DistributedThisDay uint64 `json:"distributed_this_day"`
	DustCarry          uint64 `json:"dust_carry"`
	Cursor             uint64 `json:"cursor"`
	State              string `json:"state"`
}

func dayToResponse(d *distribution.DayState) dayResponse {
	return dayResponse{
		DayIndex:           d.DayIndex,
		OpenedAt:           d.OpenedAt,
		ClaimedThisDay:     d.ClaimedThisDay,
		DistributedThisDay: d.DistributedThisDay,
		DustCarry:          d.DustCarry,
		Cursor:             d.Cursor,
		State:              string(d.Phase),
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	quoteMint, err := parseMintParam(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quote mint"})
		return
	}

	global, err := s.cfg.Distribution.GetGlobal(r.Context(), quoteMint)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := map[string]any{
		"quote_mint":           global.QuoteMint.String(),
		"last_day_index":       global.LastDayIndex,
		"lifetime_distributed": global.LifetimeDistributed,
	}

	today, err := s.cfg.Distribution.GetDay(r.Context(), quoteMint, feemath.DayIndex(s.nowUnix()))
	if err == nil {
		resp["today"] = dayToResponse(today)
	} else if !errors.Is(err, distribution.ErrDayNotFound) {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	quoteMint, err := parseMintParam(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quote mint"})
		return
	}
	dayIndex, err := strconv.ParseInt(chi.URLParam(r, "dayIndex"), 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid day index"})
		return
	}

	day, err := s.cfg.Distribution.GetDay(r.Context(), quoteMint, dayIndex)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dayToResponse(day))
}

func (s *Server) nowUnix() int64 {
	return time.Now().Unix()
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write readyz response", "error", err)
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.VersionInfo)
}
