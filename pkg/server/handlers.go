package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elonfeng/fabricpop/internal/store"
	"github.com/elonfeng/fabricpop/pkg/catalog"
	"github.com/elonfeng/fabricpop/pkg/rating"
	"github.com/elonfeng/fabricpop/pkg/review"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error(), "")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.igdb != nil {
		resp["igdb"] = s.igdb.TokenState()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScales(w http.ResponseWriter, r *http.Request) {
	var infos []rating.ScaleInfo
	for _, sc := range rating.Scales() {
		if info, ok := rating.Describe(sc); ok {
			infos = append(infos, info)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  infos,
		"count": len(infos),
	})
}

func (s *Server) handleScale(w http.ResponseWriter, r *http.Request) {
	sc, err := rating.ParseScale(chi.URLParam(r, "scale"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), review.Kind(err))
		return
	}
	info, _ := rating.Describe(sc)
	writeJSON(w, http.StatusOK, info)
}

type normalizeRequest struct {
	Value rating.Raw `json:"value"`
	Scale string     `json:"scale"`
}

type normalizeResponse struct {
	Normalized float64      `json:"normalized"`
	Percentage int          `json:"percentage"`
	Display    string       `json:"display"`
	Scale      rating.Scale `json:"scale"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sc, err := rating.ParseScale(req.Scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), review.Kind(err))
		return
	}
	orig := rating.Original{Value: req.Value, Scale: sc}
	n, err := orig.Normalized()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), review.Kind(err))
		return
	}

	writeJSON(w, http.StatusOK, normalizeResponse{
		Normalized: n,
		Percentage: review.Percentage(n),
		Display:    orig.Display(),
		Scale:      sc,
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, review.ClassifyURL(req.URL))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mediaType := review.MediaType(q.Get("type"))
	if mediaType != "" && !mediaType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid media type", "invalid_media_type")
		return
	}

	refs, err := s.catalog.Search(r.Context(), q.Get("q"), mediaType)
	switch {
	case errors.Is(err, catalog.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	case errors.Is(err, catalog.ErrNoProvider):
		writeError(w, http.StatusNotFound, err.Error(), "")
		return
	case err != nil:
		s.log.Warn("catalog search", zap.String("type", string(mediaType)), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error(), "")
		return
	}

	if refs == nil {
		refs = []review.MediaReference{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  refs,
		"count": len(refs),
	})
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var f review.Fields
	if !decodeBody(w, r, &f) {
		return
	}

	rev, err := s.builder.Build(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), review.Kind(err))
		return
	}

	rec, created, err := s.store.SaveReview(r.Context(), rev)
	if err != nil {
		s.log.Error("save review", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, rec)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOpts{
		MediaType:   review.MediaType(q.Get("type")),
		Platform:    review.Platform(q.Get("platform")),
		Unpublished: q.Get("unpublished") == "true",
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}

	recs, err := s.store.ListReviews(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  recs,
		"count": len(recs),
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	rec, err := s.store.GetReview(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error(), "")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return nil, false
	}
	return rec, true
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	b, err := review.ToCompact(rec.Review).Bytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Review-Digest", rec.Digest)
	w.Write(b)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, review.Summary(rec.Review))
}
