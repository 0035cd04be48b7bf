package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/station-ridership/internal/domain"
	"github.com/couchcryptid/station-ridership/internal/pipeline"
)

const dataHint = "ensure the station data file is present (run the preprocessing and clustering steps)"

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.svc.Regions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"regions": regions})
}

func (s *Server) handleYears(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]int{"years": s.svc.Years()})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.Map(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMapResponse(view))
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.Top(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTopResponse(view))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	points, err := s.svc.Trend(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trendResponse{Points: toTrendPoints(points)})
}

func (s *Server) handleCovid(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.Covid(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCovidResponse(view))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.svc.Compute(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Query: queryDTO{
			Regions: view.Query.Regions,
			Year:    view.Query.Year,
			ColorBy: view.Query.ColorBy,
			TopN:    view.Query.TopN,
			Bins:    view.Query.Bins,
		},
		Generation: view.Generation,
		Source:     view.Source,
		Clustered:  view.Clustered,
		LoadedAt:   view.LoadedAt,
		Stations:   view.Stations,
		Map:        toMapResponse(view.Map),
		Top:        toTopResponse(view.Top),
		Trend:      toTrendPoints(view.Trend),
		Covid:      toCovidResponse(view.Covid),
	})
}

// parseQuery reads region (repeatable), year, color_by, n and bins.
func parseQuery(r *http.Request) (pipeline.Query, error) {
	values := r.URL.Query()
	q := pipeline.Query{ColorBy: values.Get("color_by")}
	for _, region := range values["region"] {
		if region = strings.TrimSpace(region); region != "" {
			q.Regions = append(q.Regions, region)
		}
	}

	var err error
	if q.Year, err = intParam(values.Get("year"), "year"); err != nil {
		return pipeline.Query{}, err
	}
	if q.TopN, err = intParam(values.Get("n"), "n"); err != nil {
		return pipeline.Query{}, err
	}
	if q.Bins, err = intParam(values.Get("bins"), "bins"); err != nil {
		return pipeline.Query{}, err
	}
	return q, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", pipeline.ErrInvalidQuery, name, raw)
	}
	return n, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrDataUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Hint: dataHint})
	case errors.Is(err, domain.ErrUnknownYear), errors.Is(err, pipeline.ErrInvalidQuery):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
