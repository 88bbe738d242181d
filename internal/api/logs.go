package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/gantry/internal/api/models"
	"github.com/smazurov/gantry/internal/logging"
)

// registerLogRoutes registers the recent log entries endpoint.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Recent supervisor log entries from the in-memory ring buffer. Worker logs live in the log directory.",
		Tags:        []string{"logs"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, input *models.LogsInput) (*models.LogsResponse, error) {
		entries := []models.LogEntryData{}
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Tail(input.Limit) {
				entries = append(entries, models.LogEntryData{
					Timestamp:  entry.Timestamp,
					Level:      entry.Level,
					Module:     entry.Module,
					Message:    entry.Message,
					Attributes: entry.Attributes,
				})
			}
		}
		return &models.LogsResponse{
			Body: models.LogsData{Entries: entries, Count: len(entries)},
		}, nil
	})
}
