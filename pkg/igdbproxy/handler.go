package igdbproxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PathPrefix is where IGDB endpoints are exposed.
const PathPrefix = "/api/igdb/"

// maxQueryBytes caps an Apicalypse request body.
const maxQueryBytes = 64 << 10

// Handler proxies IGDB API calls so the Twitch client secret never leaves the
// server. POST {PathPrefix}{endpoint} is forwarded to {upstream}/{endpoint}
// with Client-ID and bearer headers attached.
type Handler struct {
	tokens   *TokenSource
	clientID string
	upstream string
	client   *http.Client
	log      *zap.Logger
}

// NewHandler creates a proxy handler for the IGDB API at upstream.
func NewHandler(upstream, clientID string, tokens *TokenSource, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		tokens:   tokens,
		clientID: clientID,
		upstream: strings.TrimRight(upstream, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// TokenState reports the cached token state.
func (h *Handler) TokenState() TokenState {
	return h.tokens.State()
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w)
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.URL.Path == "/health" && r.Method == http.MethodGet {
		st := h.tokens.State()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"tokenCached": st.Cached,
			"tokenExpiry": st.Expiry,
		})
		return
	}

	endpoint := strings.TrimPrefix(r.URL.Path, PathPrefix)
	if r.Method != http.MethodPost || endpoint == r.URL.Path || endpoint == "" || strings.Contains(endpoint, "..") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
		return
	}

	h.proxy(w, r, endpoint)
}

func (h *Handler) proxy(w http.ResponseWriter, r *http.Request, endpoint string) {
	setCORS(w)

	query, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body: " + err.Error()})
		return
	}

	tok, err := h.tokens.Token()
	if err != nil {
		h.log.Error("igdb token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("oauth: %v", err)})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.upstream+"/"+endpoint, strings.NewReader(string(query)))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	req.Header.Set("Client-ID", h.clientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Content-Type", "text/plain")

	h.log.Debug("proxying igdb request", zap.String("endpoint", endpoint))

	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Error("igdb request", zap.String("endpoint", endpoint), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.log.Warn("copy igdb response", zap.String("endpoint", endpoint), zap.Error(err))
	}
}
