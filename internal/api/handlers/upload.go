package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	apierrors "github.com/koustreak/entfiles/internal/api/errors"
	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/model"
	"github.com/koustreak/entfiles/internal/service"
)

// maxFieldSize caps the title and description form fields.
const maxFieldSize = 64 << 10

type uploadResponse struct {
	ID          string  `json:"id"`
	DownloadURL *string `json:"download_url"`
}

// Upload handles POST /api/upload. The multipart body is read part by part:
// the file part is staged to disk as it arrives, so form fields may come
// before or after it. Exactly one file part is accepted.
func (h *APIHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r)

	id, _ := auth.IdentityFrom(r.Context())
	if err := auth.Authorize(id, model.RoleTeacher, model.RoleAdmin); err != nil {
		apierrors.Respond(w, log, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	mr, err := r.MultipartReader()
	if err != nil {
		apierrors.Respond(w, log, errs.Wrap(errs.ErrKindInvalidInput, "Expected a multipart/form-data body", err))
		return
	}

	req := service.UploadRequest{}
	var staged *service.Staged
	defer func() {
		if staged != nil {
			staged.Discard()
		}
	}()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			apierrors.Respond(w, log, bodyError(err))
			return
		}

		switch part.FormName() {
		case "file":
			if staged != nil {
				apierrors.Respond(w, log, errs.New(errs.ErrKindInvalidInput, "Only one file part is allowed"))
				return
			}
			if part.FileName() == "" {
				apierrors.Respond(w, log, errs.New(errs.ErrKindInvalidInput, "filename empty"))
				return
			}
			req.Filename = part.FileName()
			if staged, err = h.uploads.Stage(part); err != nil {
				apierrors.Respond(w, log, err)
				return
			}
		case "title":
			if req.Title, err = readField(part); err != nil {
				apierrors.Respond(w, log, err)
				return
			}
		case "description":
			if req.Description, err = readField(part); err != nil {
				apierrors.Respond(w, log, err)
				return
			}
		}
		_ = part.Close()
	}

	if staged == nil {
		apierrors.Respond(w, log, errs.New(errs.ErrKindInvalidInput, "no file part"))
		return
	}
	req.Body = staged

	res, err := h.uploads.Upload(r.Context(), id, req)
	if err != nil {
		apierrors.Respond(w, log, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{ID: res.ID, DownloadURL: res.DownloadURL})
}

func readField(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxFieldSize+1))
	if err != nil {
		return "", bodyError(err)
	}
	if len(b) > maxFieldSize {
		return "", errs.New(errs.ErrKindInvalidInput, "form field too long")
	}
	return strings.TrimSpace(string(b)), nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errs.Wrap(errs.ErrKindTooLarge, "File exceeds the upload limit", err)
	}
	return errs.Wrap(errs.ErrKindInvalidInput, "Malformed multipart body", err)
}
