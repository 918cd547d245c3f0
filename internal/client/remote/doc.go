// Package remote stores records in one tab of a Google Sheets spreadsheet.
//
// The spreadsheet is discovered by name through the Drive API and created
// when missing. Row 1 of the tab holds the column header (models.Schema);
// every following row holds one record. Positions handed out and accepted by
// Table are 1-based sheet rows, so the first record lives at row 2.
//
// Table never keeps credentials. Every call takes the bearer token to use, so
// the caller owns the session and decides what to do when a call fails.
// Failures are reported as *Error values that match one of the sentinel kinds
// with errors.Is:
//
//	ErrAuth         the token was rejected
//	ErrPermission   the token lacks a grant for the resource
//	ErrSchema       the spreadsheet, tab or range does not exist
//	ErrUnavailable  rate limited, server side failure or transport error
//	ErrUnknown      anything else, with the provider message kept verbatim
//
// Idempotent calls retry ErrUnavailable with exponential backoff. Appends and
// deletes are attempted once.
package remote
