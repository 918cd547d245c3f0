package services

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenProvider acquires and revokes OAuth access tokens.
type TokenProvider interface {
	Init(ctx context.Context) error
	Token(ctx context.Context, interactive bool) (*oauth2.Token, error)
	Revoke(ctx context.Context, token string) error
}

// RemoteTable is the record table kept in the cloud spreadsheet. Every call
// takes the bearer token to use; rows are 1-based sheet positions.
type RemoteTable interface {
	Init(ctx context.Context) error
	FindOrCreateDocument(ctx context.Context, token, name string) (string, bool, error)
	EnsureTableSchema(ctx context.Context, token, docID string) error
	ReadAll(ctx context.Context, token, docID string) ([]string, [][]string, error)
	AppendRow(ctx context.Context, token, docID string, row []string) (int, error)
	UpdateRow(ctx context.Context, token, docID string, rowIndex int, row []string) error
	DeleteRow(ctx context.Context, token, docID string, rowIndex int) error
}
