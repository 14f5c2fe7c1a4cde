// Package http exposes the budget ledger as a JSON API.
package http

import (
	"net/http"

	"hucha/internal/services"
)

type Server struct {
	http.Server
	lifecycle *services.LifecycleService
	ledger    *services.LedgerService
	cash      *services.CashService
	summary   *services.SummaryService
	piggy     *services.PiggyBankService
}

func NewServer(
	addr string,
	lifecycle *services.LifecycleService,
	ledger *services.LedgerService,
	cash *services.CashService,
	summary *services.SummaryService,
	piggy *services.PiggyBankService,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		lifecycle: lifecycle,
		ledger:    ledger,
		cash:      cash,
		summary:   summary,
		piggy:     piggy,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleHealth)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("GET /api/months", s.handleListMonths)
	mux.HandleFunc("POST /api/months", s.handleStartMonth)
	mux.HandleFunc("GET /api/months/current", s.handleCurrentMonth)
	mux.HandleFunc("GET /api/months/{id}", s.handleGetMonth)
	mux.HandleFunc("PATCH /api/months/{id}", s.handleUpdateMonth)
	mux.HandleFunc("DELETE /api/months/{id}", s.handleDeleteMonth)
	mux.HandleFunc("POST /api/months/{id}/close", s.handleCloseMonth)
	mux.HandleFunc("POST /api/months/{id}/extra-income", s.handleExtraIncome)
	mux.HandleFunc("GET /api/months/{id}/balances", s.handleMonthBalances)

	mux.HandleFunc("GET /api/weeks/current", s.handleCurrentWeek)
	mux.HandleFunc("POST /api/weeks/{id}/close", s.handleCloseWeek)
	mux.HandleFunc("POST /api/weeks/{id}/cash-return", s.handleCashReturn)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/piggybanks", s.handleListPiggyBanks)
	mux.HandleFunc("GET /api/piggybanks/summary", s.handlePiggyBankSummary)
	mux.HandleFunc("GET /api/piggybanks/{id}/entries", s.handlePiggyBankEntries)
	mux.HandleFunc("POST /api/piggybanks/{id}/deposits", s.handlePiggyBankDeposit)

	mux.HandleFunc("GET /api/safety", s.handleSafetyBalance)
	mux.HandleFunc("GET /api/safety/history", s.handleSafetyHistory)
	mux.HandleFunc("POST /api/safety/withdrawals", s.handleSafetyWithdrawal)

	return s
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
