// Package handlers implements the entfiles HTTP API on top of the service
// layer.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"

	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/filestore"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/model"
	"github.com/koustreak/entfiles/internal/service"
)

// LoginService is the login flow. *service.AuthService implements it.
type LoginService interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

// UploadService is the upload flow. *service.UploadService implements it.
type UploadService interface {
	Stage(body io.Reader) (*service.Staged, error)
	Upload(ctx context.Context, id auth.Identity, req service.UploadRequest) (*service.UploadResult, error)
}

// FileService is the retrieval flow. *service.FileService implements it.
type FileService interface {
	List(ctx context.Context, id auth.Identity) (iter.Seq[service.FileSummary], error)
	Fetch(ctx context.Context, id auth.Identity, fileID string) (*service.FetchResult, error)
	Open(ctx context.Context, rec *model.FileRecord) (filestore.Object, error)
}

// APIHandler serves the login, upload and file endpoints.
type APIHandler struct {
	login     LoginService
	uploads   UploadService
	files     FileService
	maxUpload int64
	log       *logger.Logger
}

// NewAPIHandler creates an APIHandler. maxUpload caps the request body of
// an upload, in bytes.
func NewAPIHandler(login LoginService, uploads UploadService, files FileService, maxUpload int64, log *logger.Logger) *APIHandler {
	return &APIHandler{
		login:     login,
		uploads:   uploads,
		files:     files,
		maxUpload: maxUpload,
		log:       log.Component("api_handler"),
	}
}

func (h *APIHandler) logger(r *http.Request) *logger.Logger {
	return logger.FromContext(r.Context(), h.log)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
