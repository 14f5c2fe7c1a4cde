package http

import (
	"net/http"
)

func (s *Server) handleListPiggyBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := s.piggy.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, banks)
}

func (s *Server) handlePiggyBankSummary(w http.ResponseWriter, r *http.Request) {
	totals, err := s.piggy.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handlePiggyBankEntries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.piggy.Entries(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type depositRequest struct {
	Amount  FlexAmount `json:"amount"`
	Note    string     `json:"note"`
	MonthID *int64     `json:"month_id"`
}

func (s *Server) handlePiggyBankDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := s.piggy.Deposit(r.Context(), id, string(req.Amount), req.Note, req.MonthID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
