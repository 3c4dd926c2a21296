package app

import (
	"context"
	"fmt"
	"time"
)

const (
	maxDiagnosticCollections = 10
	maxDiagnosticErrorLength = 80
)

type DiagnosticsHandler struct {
	repository   Repository
	databaseURL  bool
	databaseName string
}

// NewDiagnosticsHandler builds the status page handler. databaseURLSet and
// databaseName describe the configuration, not the live connection.
func NewDiagnosticsHandler(repository Repository, databaseURLSet bool, databaseName string) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		repository:   repository,
		databaseURL:  databaseURLSet,
		databaseName: databaseName,
	}
}

type DiagnosticsRequest struct{}

type DiagnosticsResponse struct {
	Backend            string   `json:"backend"`
	Database           string   `json:"database"`
	DatabaseConfigured bool     `json:"database_configured"`
	DatabaseURLSet     bool     `json:"database_url_set"`
	DatabaseName       string   `json:"database_name"`
	ConnectionStatus   string   `json:"connection_status"`
	Collections        []string `json:"collections"`
}

// Handle never fails: probe errors end up in the response body.
func (h DiagnosticsHandler) Handle(ctx context.Context, _ *DiagnosticsRequest) (*DiagnosticsResponse, error) {
	res := &DiagnosticsResponse{
		Backend:            "running",
		Database:           "not available",
		DatabaseConfigured: h.repository != nil && h.repository.Configured(),
		DatabaseURLSet:     h.databaseURL,
		DatabaseName:       h.databaseName,
		ConnectionStatus:   "not connected",
		Collections:        []string{},
	}

	if res.DatabaseName == "" {
		res.DatabaseName = "not set"
	}

	if !res.DatabaseConfigured {
		res.Database = "available but not initialized"
		return res, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collections, err := h.probe(probeCtx)
	if err != nil {
		res.Database = "error: " + truncate(err.Error(), maxDiagnosticErrorLength)
		return res, nil
	}

	if len(collections) > maxDiagnosticCollections {
		collections = collections[:maxDiagnosticCollections]
	}

	res.Database = "connected & working"
	res.ConnectionStatus = "connected"
	res.Collections = collections

	return res, nil
}

func (h DiagnosticsHandler) probe(ctx context.Context) (collections []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()

	collections, err = h.repository.ListCollectionNames(ctx)
	if collections == nil {
		collections = []string{}
	}
	return collections, err
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
