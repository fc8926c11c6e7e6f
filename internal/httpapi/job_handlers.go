package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"verenigingsloket.org/internal/auth"
	"verenigingsloket.org/internal/job"
)

const (
	sessionHeader = "mu-session-id"
	reasonHeader  = "X-Request-Reason"
)

type jobResponse struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Result     string    `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func toJobResponse(j job.Job) jobResponse {
	return jobResponse{
		ID:         j.ID,
		Status:     string(j.Status),
		CreatedAt:  j.CreatedAt,
		ModifiedAt: j.ModifiedAt,
		Result:     j.ResultReference,
		Error:      j.ErrorMessage,
	}
}

func (a *API) handleJobsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createJob(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

// createJob runs the gate, creates the job and answers 202 while the
// export continues in the background. The access trail is written for
// the created job before any processing starts.
func (a *API) createJob(w http.ResponseWriter, r *http.Request) {
	grant, err := a.gate.Authorize(r.Context(), r.Header.Get(sessionHeader), r.Header.Get(reasonHeader))
	if err != nil {
		handleGateError(w, r, err)
		return
	}

	j := a.runner.Create(grant.Session.Account)
	a.gate.RecordGrant(r.Context(), grant, j.ID)
	a.runner.Start(j.ID, grant.Session.Scope)

	writeJSON(w, http.StatusAccepted, toJobResponse(j))
}

func (a *API) handleJobResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/sensitive-data-jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getJob(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request, id string) {
	j, err := a.runner.Status(id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "job lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(j))
}

type debugJobRequest struct {
	Werkingsgebied string `json:"werkingsgebied"`
}

// handleDebugJobs bypasses the gate. Only wired when debug endpoints
// are enabled.
func (a *API) handleDebugJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req debugJobRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	j := a.runner.Launch("debug", req.Werkingsgebied)
	writeJSON(w, http.StatusAccepted, toJobResponse(j))
}

func handleGateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNoSession), errors.Is(err, auth.ErrInvalidSession):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrBadReason):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "authorization failed")
	}
}

var errEmptyBody = errors.New("request body is required")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
