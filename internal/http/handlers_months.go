package http

import (
	"net/http"

	"hucha/internal/core"
	"hucha/internal/services"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.lifecycle.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.lifecycle.ListMonths(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleCurrentMonth(w http.ResponseWriter, r *http.Request) {
	month, err := s.lifecycle.CurrentMonth(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, month)
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := s.lifecycle.GetMonth(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, month)
}

type startMonthRequest struct {
	Income       FlexAmount `json:"income"`
	SavingGoal   FlexAmount `json:"saving_goal"`
	WeeklyBudget FlexAmount `json:"weekly_budget"`
	StartDate    *core.Date `json:"start_date"`
}

type startMonthResponse struct {
	Month core.Month  `json:"month"`
	Weeks []core.Week `json:"weeks"`
}

func (s *Server) handleStartMonth(w http.ResponseWriter, r *http.Request) {
	var req startMonthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	month, weeks, err := s.lifecycle.StartMonth(r.Context(), services.StartMonthInput{
		Income:       string(req.Income),
		SavingGoal:   orZero(req.SavingGoal),
		WeeklyBudget: orZero(req.WeeklyBudget),
		StartDate:    req.StartDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, startMonthResponse{Month: month, Weeks: weeks})
}

func orZero(f FlexAmount) string {
	if f == "" {
		return "0"
	}
	return string(f)
}

type updateMonthRequest struct {
	Income       *FlexAmount `json:"income"`
	SavingGoal   *FlexAmount `json:"saving_goal"`
	WeeklyBudget *FlexAmount `json:"weekly_budget"`
}

func (s *Server) handleUpdateMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateMonthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	month, err := s.lifecycle.UpdateMonth(r.Context(), id,
		req.Income.strPtr(), req.SavingGoal.strPtr(), req.WeeklyBudget.strPtr())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, month)
}

func (s *Server) handleDeleteMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.lifecycle.DeleteMonth(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.lifecycle.CloseMonth(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type extraIncomeRequest struct {
	Amount      FlexAmount        `json:"amount"`
	Attribution *core.Attribution `json:"attribution"`
	Concept     string            `json:"concept"`
	Note        string            `json:"note"`
}

func (s *Server) handleExtraIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req extraIncomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.cash.ExtraIncome(r.Context(), id, string(req.Amount), req.Attribution, req.Concept, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type monthBalancesResponse struct {
	PocketCash  core.Money `json:"pocket_cash"`
	BankBalance core.Money `json:"bank_balance"`
}

func (s *Server) handleMonthBalances(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bank, err := s.cash.BankBalance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pocket, err := s.cash.PocketCashBalance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthBalancesResponse{PocketCash: pocket, BankBalance: bank})
}
