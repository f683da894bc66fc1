package knowledge

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/supportdesk/internal/server"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

const maxUploadBytes = 10 << 20

// DefaultTopK is the number of hits returned when a search names none.
const DefaultTopK = 6

// RegisterRoutes mounts the knowledge base API routes.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/kb/upload", handleUpload(svc))
	r.Get("/kb/search", handleSearch(svc))
}

type uploadRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

func handleUpload(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		var (
			n   int
			err error
		)
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if strings.HasPrefix(mediaType, "multipart/") {
			file, header, ferr := r.FormFile("file")
			if ferr != nil {
				server.WriteError(w, http.StatusBadRequest, "multipart field 'file' is required")
				return
			}
			defer file.Close()

			data, rerr := io.ReadAll(file)
			if rerr != nil {
				server.WriteError(w, http.StatusBadRequest, "could not read uploaded file")
				return
			}
			n, err = svc.UploadFile(r.Context(), header.Filename, data, r.FormValue("source"))
		} else {
			var req uploadRequest
			if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
				server.WriteError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			n, err = svc.Upload(r.Context(), req.Text, req.Source)
		}

		switch {
		case errors.Is(err, ErrEmptyUpload), errors.Is(err, vectordb.ErrInvalidDocument):
			server.WriteError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, vectordb.ErrStoreUnavailable):
			slog.Error("knowledge upload", "error", err)
			server.WriteError(w, http.StatusServiceUnavailable, "knowledge store unavailable")
			return
		case err != nil:
			slog.Error("knowledge upload", "error", err)
			server.WriteError(w, http.StatusInternalServerError, "could not ingest upload")
			return
		}

		server.WriteJSON(w, http.StatusOK, map[string]int{"ingested_chunks": n})
	}
}

func handleSearch(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if strings.TrimSpace(q) == "" {
			server.WriteError(w, http.StatusBadRequest, "query parameter 'q' is required")
			return
		}
		topK := DefaultTopK
		if v := r.URL.Query().Get("top_k"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				server.WriteError(w, http.StatusBadRequest, "top_k must be a positive integer")
				return
			}
			topK = n
		}

		hits, err := svc.Search(r.Context(), q, topK)
		if err != nil {
			slog.Error("knowledge search", "error", err)
			server.WriteError(w, http.StatusServiceUnavailable, "knowledge store unavailable")
			return
		}
		if hits == nil {
			hits = []vectordb.Hit{}
		}
		server.WriteJSON(w, http.StatusOK, hits)
	}
}
