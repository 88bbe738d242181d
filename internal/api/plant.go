package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/gantry/internal/api/models"
	"github.com/smazurov/gantry/internal/supervisor"
	"github.com/smazurov/gantry/internal/worker"
)

// registerPlantRoutes registers worker, watchdog and control endpoints.
func (s *Server) registerPlantRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-workers",
		Method:      http.MethodGet,
		Path:        "/api/workers",
		Summary:     "List Workers",
		Description: "List every worker descriptor in spawn order",
		Tags:        []string{"workers"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.WorkerListResponse, error) {
		infos := s.plant.Workers()
		workers := make([]models.WorkerData, 0, len(infos))
		for _, info := range infos {
			workers = append(workers, models.WorkerData{
				Role:       string(info.Role),
				PID:        info.PID,
				State:      string(info.State),
				StartedAt:  info.StartedAt,
				ExitedAt:   info.ExitedAt,
				ExitStatus: info.ExitStatus,
				LastError:  info.LastError,
			})
		}
		return &models.WorkerListResponse{
			Body: models.WorkerListData{Workers: workers, Count: len(workers)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-watchdog",
		Method:      http.MethodGet,
		Path:        "/api/watchdog",
		Summary:     "Watchdog",
		Description: "Get the inactivity watchdog state",
		Tags:        []string{"watchdog"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.WatchdogResponse, error) {
		st := s.plant.Watchdog()
		return &models.WatchdogResponse{
			Body: models.WatchdogData{
				Dir:            st.Dir,
				TimeoutSeconds: st.Timeout.Seconds(),
				Running:        st.Running,
				LastActivity:   st.LastActivity,
				LastFile:       st.LastFile,
				Resets:         st.Resets,
				Outcome:        string(st.Outcome),
			},
		}, nil
	})

	s.registerAxisRoute("halt-axis", "halt", "Halt Axis", "Stop the axis immediately (gain 0)", worker.RequestHalt)
	s.registerAxisRoute("home-axis", "home", "Home Axis", "Drive the axis back to its lower bound", worker.RequestHome)

	huma.Register(s.api, huma.Operation{
		OperationID:   "request-shutdown",
		Method:        http.MethodPost,
		Path:          "/api/shutdown",
		Summary:       "Shutdown",
		Description:   "Request an orderly plant shutdown, same as sending SIGTERM to the supervisor",
		Tags:          []string{"control"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ShutdownResponse, error) {
		s.plant.RequestShutdown("api")
		return &models.ShutdownResponse{
			Status: http.StatusAccepted,
			Body:   models.ShutdownData{Accepted: true, Message: "Shutdown requested"},
		}, nil
	})
}

func (s *Server) registerAxisRoute(id, action, summary, description string, req worker.Request) {
	huma.Register(s.api, huma.Operation{
		OperationID: id,
		Method:      http.MethodPost,
		Path:        "/api/axes/{axis}/" + action,
		Summary:     summary,
		Description: description,
		Tags:        []string{"control"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 422},
	}, func(_ context.Context, input *models.AxisRequestInput) (*models.AxisRequestResponse, error) {
		err := s.plant.RequestAxis(input.Axis, req)
		switch {
		case errors.Is(err, supervisor.ErrUnknownAxis):
			return nil, huma.Error404NotFound("Unknown axis", err)
		case err != nil:
			return nil, huma.Error409Conflict("Axis controller is not running", err)
		}
		return &models.AxisRequestResponse{
			Body: models.AxisRequestData{
				Axis:    input.Axis,
				Request: req.String(),
				Message: "Request sent",
			},
		}, nil
	})
}
