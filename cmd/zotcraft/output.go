package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/zotcraft/internal/reconcile"
)

// Title truncation length for human-readable listings.
const listTitleMaxLen = 60

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError writes an error message to stderr and returns the exit code.
func outputError(code int, format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return code
}

// exitWithError outputs an error in the appropriate format and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// warnf prints a warning to stderr regardless of output mode.
func warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SyncReport is the JSON report of a sync run.
type SyncReport struct {
	Created  int                 `json:"created"`
	Updated  int                 `json:"updated"`
	Deleted  int                 `json:"deleted"`
	Skipped  int                 `json:"skipped"`
	Errors   int                 `json:"errors"`
	Outcomes []reconcile.Outcome `json:"outcomes"`
}

// NewSyncReport tallies outcomes into a report.
func NewSyncReport(outcomes []reconcile.Outcome) SyncReport {
	r := SyncReport{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Action {
		case reconcile.ActionCreated:
			r.Created++
		case reconcile.ActionUpdated:
			r.Updated++
		case reconcile.ActionDeleted:
			r.Deleted++
		case reconcile.ActionSkipped:
			r.Skipped++
		case reconcile.ActionError:
			r.Errors++
		}
	}
	return r
}

// printSyncReportHuman prints a sync report in human-readable form.
func printSyncReportHuman(r SyncReport) {
	for _, o := range r.Outcomes {
		title := o.Title
		if len(title) > listTitleMaxLen {
			title = title[:listTitleMaxLen] + "…"
		}
		switch o.Action {
		case reconcile.ActionError:
			fmt.Printf("  %-8s %s: %s\n", o.Action, title, o.Detail)
		default:
			fmt.Printf("  %-8s %s\n", o.Action, title)
		}
	}
	fmt.Printf("%d created, %d updated, %d skipped, %d errors\n",
		r.Created, r.Updated, r.Skipped, r.Errors)
}
