package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/helpcomp/merchant-category-resolver/httperror"
	"github.com/helpcomp/merchant-category-resolver/resolver"
	"github.com/rs/zerolog/log"
)

// categoryResolver is the slice of the resolver the HTTP layer needs.
type categoryResolver interface {
	Resolve(ctx context.Context, name, userID string) *resolver.Resolution
}

type server struct {
	resolver        categoryResolver
	defaultCategory string
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/resolve", s.handleResolve)
	mux.HandleFunc("/transactions/categorize", s.handleCategorize)
}

// handleResolve serves one merchant name lookup. An unresolved name is not
// an error: the response carries the default category with resolved=false.
func (s *server) handleResolve(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.MethodNotAllowed(w)
		return
	}

	var body ResolveRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httperror.Send(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.UserID == "" {
		httperror.Send(w, http.StatusBadRequest, "userId is required")
		return
	}

	writeJSON(w, s.response(s.resolver.Resolve(req.Context(), body.Name, body.UserID)))
}

// handleCategorize resolves a batch of imported transactions in input order.
func (s *server) handleCategorize(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		httperror.MethodNotAllowed(w)
		return
	}

	var body CategorizeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httperror.Send(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.UserID == "" {
		httperror.Send(w, http.StatusBadRequest, "userId is required")
		return
	}

	out := CategorizeResponse{
		Transactions: make([]CategorizedTransaction, 0, len(body.Transactions)),
	}
	for _, txn := range body.Transactions {
		out.Transactions = append(out.Transactions, CategorizedTransaction{
			ImportedTransaction: txn,
			ResolveResponse:     s.response(s.resolver.Resolve(req.Context(), txn.Description, body.UserID)),
		})
	}
	writeJSON(w, out)
}

func (s *server) response(res *resolver.Resolution) ResolveResponse {
	if res == nil {
		return ResolveResponse{
			Resolved:     false,
			CategoryName: s.defaultCategory,
		}
	}
	return ResolveResponse{
		Resolved:     true,
		CategoryName: res.CategoryName,
		CategoryID:   res.CategoryID,
		Confidence:   res.Confidence,
		Source:       string(res.Source),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Could not encode response")
	}
}
