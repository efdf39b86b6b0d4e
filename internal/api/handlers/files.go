package handlers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/munnerz/goautoneg"

	apierrors "github.com/koustreak/entfiles/internal/api/errors"
	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/service"
)

const (
	mimeJSON        = "application/json"
	mimeOctetStream = "application/octet-stream"
)

// downloadOffers is the order of preference when Accept does not decide.
var downloadOffers = []string{mimeOctetStream, mimeJSON}

type fileResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	FileType    string    `json:"file_type"`
	CreatedAt   time.Time `json:"created_at"`
	DownloadURL *string   `json:"download_url"`
}

type downloadLinkResponse struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
}

// ListFiles handles GET /api/files. Entries are encoded as they are
// produced, so each download URL is signed just before it is written.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	seq, err := h.files.List(r.Context(), id)
	if err != nil {
		apierrors.Respond(w, h.logger(r), err)
		return
	}

	w.Header().Set("Content-Type", mimeJSON)
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	_, _ = io.WriteString(w, "[")
	first := true
	for sum := range seq {
		if !first {
			_, _ = io.WriteString(w, ",")
		}
		first = false
		if err := enc.Encode(toFileResponse(sum)); err != nil {
			h.logger(r).Warn("listing aborted: " + err.Error())
			return
		}
	}
	_, _ = io.WriteString(w, "]\n")
}

func toFileResponse(s service.FileSummary) fileResponse {
	return fileResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Author:      s.Author,
		Filename:    s.Filename,
		Size:        s.Size,
		FileType:    s.FileType,
		CreatedAt:   s.CreatedAt.UTC(),
		DownloadURL: s.DownloadURL,
	}
}

// DownloadFile handles GET /api/files/download/{id}. Clients preferring
// JSON get a signed link; everyone else gets the bytes streamed as an
// attachment.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r)
	id, _ := auth.IdentityFrom(r.Context())

	res, err := h.files.Fetch(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Respond(w, log, err)
		return
	}

	filename := res.Record.OriginalFilename
	if filename == "" {
		filename = "file"
	}

	if goautoneg.Negotiate(r.Header.Get("Accept"), downloadOffers) == mimeJSON {
		writeJSON(w, http.StatusOK, downloadLinkResponse{DownloadURL: res.DownloadURL, Filename: filename})
		return
	}

	obj, err := h.files.Open(r.Context(), res.Record)
	if err != nil {
		apierrors.Respond(w, log, err)
		return
	}
	defer obj.Close()

	hdr := w.Header()
	hdr.Set("Content-Type", service.ContentTypeFor(filename))
	hdr.Set("Content-Disposition", contentDisposition(filename))
	if info := obj.Info(); info != nil && info.Size >= 0 {
		hdr.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if n, err := io.Copy(w, obj); err != nil {
		log.With().Str("file_id", res.Record.ID).Int64("written", n).Err(err).Logger().
			Warn("download interrupted")
	}
}

func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
