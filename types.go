package main

import "github.com/shopspring/decimal"

// ResolveRequest asks for the category of a single merchant name.
type ResolveRequest struct {
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

// ResolveResponse reports the outcome of one lookup. When Resolved is false
// the category falls back to the configured default bucket.
type ResolveResponse struct {
	Resolved     bool    `json:"resolved"`
	CategoryName string  `json:"categoryName"`
	CategoryID   string  `json:"categoryId,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Source       string  `json:"source,omitempty"`
}

// ImportedTransaction is one row of a batch import, as entered or pulled
// from a bank feed.
type ImportedTransaction struct {
	ID          string          `json:"id,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Posted      int64           `json:"posted,omitempty"`
}

// CategorizeRequest resolves a batch of imported transactions for one user.
type CategorizeRequest struct {
	UserID       string                `json:"userId"`
	Transactions []ImportedTransaction `json:"transactions"`
}

// CategorizedTransaction echoes an imported transaction with its category.
type CategorizedTransaction struct {
	ImportedTransaction
	ResolveResponse
}

// CategorizeResponse is the batch result, in input order.
type CategorizeResponse struct {
	Transactions []CategorizedTransaction `json:"transactions"`
}
