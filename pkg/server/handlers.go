package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/coinstack/pkg/buildinfo"
	"github.com/matzehuels/coinstack/pkg/errors"
	"github.com/matzehuels/coinstack/pkg/ledger"
	"github.com/matzehuels/coinstack/pkg/prices"
	"github.com/matzehuels/coinstack/pkg/render"
)

// maxBody bounds request bodies; every accepted payload is a small object.
const maxBody = 64 * 1024

// AddRequest is the body of POST /assets.
type AddRequest struct {
	AssetID  string  `json:"asset_id"`
	Quantity float64 `json:"quantity"`
}

// AddResponse lists the spawned blocks.
type AddResponse struct {
	Blocks []render.BlockDoc `json:"blocks"`
}

// BlockResponse is one block with its valuation.
type BlockResponse struct {
	Block  render.BlockDoc `json:"block"`
	Detail ledger.Detail   `json:"detail"`
}

// HoldingsResponse is the body of GET /holdings.
type HoldingsResponse struct {
	Holdings []ledger.Holding `json:"holdings"`
	Metrics  ledger.Metrics   `json:"metrics"`
}

// ReorganizeResponse summarizes a reorganization.
type ReorganizeResponse struct {
	Placed     int      `json:"placed"`
	Overflow   []string `json:"overflow"`
	DurationMS float64  `json:"duration_ms"`
}

// SaveResponse reports how many records were written.
type SaveResponse struct {
	Records int `json:"records"`
}

// ErrorBody is the error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and a message.
type ErrorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// =============================================================================
// Read
// =============================================================================

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var opts []render.JSONOption
	if r.URL.Query().Get("cells") != "" {
		opts = append(opts, render.WithJSONCells())
	}
	writeJSON(w, http.StatusOK, render.NewDocument(s.svc.Snapshot(), opts...))
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Snapshot()
	writeJSON(w, http.StatusOK, HoldingsResponse{Holdings: snap.Holdings, Metrics: snap.Metrics})
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	b, d, err := s.svc.Block(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BlockResponse{Block: render.NewBlockDoc(b), Detail: d})
}

// =============================================================================
// Intents
// =============================================================================

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	blocks, err := s.svc.Add(r.Context(), req.AssetID, req.Quantity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := AddResponse{Blocks: make([]render.BlockDoc, 0, len(blocks))}
	for _, b := range blocks {
		resp.Blocks = append(resp.Blocks, render.NewBlockDoc(b))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, render.NewBlockDoc(b))
}

func (s *Server) handleReorganize(w http.ResponseWriter, r *http.Request) {
	res := s.svc.Reorganize(r.Context())
	overflow := res.Overflow
	if overflow == nil {
		overflow = []string{}
	}
	writeJSON(w, http.StatusOK, ReorganizeResponse{
		Placed:     res.Placed,
		Overflow:   overflow,
		DurationMS: float64(res.Duration) / float64(time.Millisecond),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Clear(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Save(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Records: n})
}

func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	if err := errors.ValidateAssetID(asset); err != nil {
		s.writeError(w, err)
		return
	}
	var q prices.Quote
	if err := decodeBody(w, r, &q); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.SetPrice(asset, q); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handlePause(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if paused {
			s.svc.Pause()
		} else {
			s.svc.Resume()
		}
		writeJSON(w, http.StatusOK, map[string]bool{"paused": s.svc.Paused()})
	}
}

// =============================================================================
// Encoding
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: errors.UserMessage(err)}})
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch code := errors.GetCode(err); {
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case code == errors.ErrCodeNotFound, code == errors.ErrCodeBlockNotFound:
		return http.StatusNotFound
	case code == errors.ErrCodeCorruptRecord:
		return http.StatusUnprocessableEntity
	case code == errors.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case code == errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}
