package httpapi

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"verenigingsloket.org/internal/export"
	"verenigingsloket.org/internal/ids"
)

const (
	exportRefTTL    = 10 * time.Minute
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// exportRefs holds identifier lists behind short-lived, single-use
// references, decoupling the selection request from the download.
type exportRefs struct {
	mu   sync.Mutex
	refs map[string]exportRef
	now  func() time.Time
}

type exportRef struct {
	ids     []string
	expires time.Time
}

func newExportRefs() *exportRefs {
	return &exportRefs{refs: make(map[string]exportRef), now: time.Now}
}

func (e *exportRefs) put(list []string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	for k, v := range e.refs {
		if now.After(v.expires) {
			delete(e.refs, k)
		}
	}
	ref := ids.New()
	e.refs[ref] = exportRef{ids: list, expires: now.Add(exportRefTTL)}
	return ref
}

// take returns and removes the list behind ref. Expired entries count
// as absent.
func (e *exportRefs) take(ref string) ([]string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.refs[ref]
	if !ok {
		return nil, false
	}
	delete(e.refs, ref)
	if e.now().After(entry.expires) {
		return nil, false
	}
	return entry.ids, true
}

type storeExportRequest struct {
	AssociationIDs []string `json:"associationIds"`
}

func (a *API) handleExportsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.storeExport(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) storeExport(w http.ResponseWriter, r *http.Request) {
	var req storeExportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.AssociationIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "missing associationIds in request body")
		return
	}
	ref := a.exports.put(req.AssociationIDs)
	writeJSON(w, http.StatusOK, map[string]string{"referenceId": ref})
}

// handleExportDownload assembles the workbook for a stored reference and
// streams it. The download never touches the external registry; that
// data stays behind the sensitive-data gate.
func (a *API) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeError(w, r, http.StatusBadRequest, "invalid or missing reference id")
		return
	}
	list, ok := a.exports.take(ref)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid or missing reference id")
		return
	}

	artifact, err := a.assembler.Assemble(r.Context(), list, "", export.Sources{Internal: true})
	if err != nil {
		if errors.Is(err, export.ErrNoData) {
			writeError(w, r, http.StatusBadRequest, "associations not found or empty")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="verenigingen.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Bytes)
}
