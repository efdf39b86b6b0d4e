package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/koustreak/entfiles/internal/auth"
	"github.com/koustreak/entfiles/internal/errs"
	"github.com/koustreak/entfiles/internal/filestore/memory"
	"github.com/koustreak/entfiles/internal/logger"
	"github.com/koustreak/entfiles/internal/model"
	"github.com/koustreak/entfiles/internal/service"
)

const bucket = "cours"

var (
	teacher = auth.Identity{UserID: "11111111-1111-1111-1111-111111111111", Email: "prof@school.edu", Role: model.RoleTeacher, Name: "Prof"}
	student = auth.Identity{UserID: "22222222-2222-2222-2222-222222222222", Email: "eleve@school.edu", Role: model.RoleStudent, Name: "Eleve"}
)

// memFiles is an in-memory FileRepository.
type memFiles struct {
	mu        sync.Mutex
	recs      []model.FileRecord
	insertErr error
	listErr   error
}

func (m *memFiles) Insert(_ context.Context, f *model.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.recs = append(m.recs, *f)
	return nil
}

func (m *memFiles) FindByID(_ context.Context, id string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			rec := m.recs[i]
			return &rec, nil
		}
	}
	return nil, errs.New(errs.ErrKindNotFound, "no rows")
}

func (m *memFiles) List(context.Context) ([]model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := slices.Clone(m.recs)
	slices.SortFunc(out, func(a, b model.FileRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// memUsers is an in-memory UserRepository.
type memUsers struct {
	users   map[string]*model.User
	findErr error
}

func (m *memUsers) Insert(_ context.Context, u *model.User) error {
	m.users[u.Email] = u
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, errs.New(errs.ErrKindNotFound, "no rows")
}

type testEnv struct {
	api   *APIHandler
	store *memory.Store
	files *memFiles
	users *memUsers
	gate  *auth.Gate
}

func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	log := logger.Nop()

	store := memory.New()
	require.NoError(t, store.EnsureBucket(context.Background(), bucket))

	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)

	users := &memUsers{users: map[string]*model.User{
		"prof@school.edu": {
			ID: teacher.UserID, Email: "prof@school.edu", PasswordHash: hash,
			Name: "Prof", Role: model.RoleTeacher, RegisteredAt: time.Now(),
		},
	}}
	files := &memFiles{}

	gate, err := auth.NewGate("test-secret", time.Minute)
	require.NoError(t, err)

	opts := service.Options{Bucket: bucket, SignedURLTTL: time.Hour, StagingDir: t.TempDir()}
	api := NewAPIHandler(
		service.NewAuthService(users, hasher, gate, log),
		service.NewUploadService(store, files, opts, log),
		service.NewFileService(store, files, opts, log),
		maxUpload,
		log,
	)
	return &testEnv{api: api, store: store, files: files, users: users, gate: gate}
}

type filePart struct {
	name    string
	content string
}

func multipartBody(t *testing.T, fields [][2]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range files {
		fw, err := w.CreateFormFile("file", f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	for _, kv := range fields {
		require.NoError(t, w.WriteField(kv[0], kv[1]))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func withIdentity(r *http.Request, id auth.Identity) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), id))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
