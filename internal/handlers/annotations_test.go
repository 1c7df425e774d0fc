package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sernion/mark-backend/internal/middleware"
	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/store"
)

type fakeDatasets struct {
	mu       sync.Mutex
	datasets map[uuid.UUID]*models.Dataset
}

func newFakeDatasets() *fakeDatasets {
	return &fakeDatasets{datasets: map[uuid.UUID]*models.Dataset{}}
}

func (f *fakeDatasets) Create(ctx context.Context, d *models.Dataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.datasets[d.ID] = &cp
	return nil
}

func (f *fakeDatasets) ByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.datasets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDatasets) ListForProject(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Dataset
	for _, d := range f.datasets {
		if d.ProjectID == projectID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDatasets) Update(ctx context.Context, d *models.Dataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.datasets[d.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *d
	f.datasets[d.ID] = &cp
	return nil
}

func (f *fakeDatasets) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.datasets[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.datasets, id)
	return nil
}

type fakeAnnotations struct {
	mu          sync.Mutex
	annotations map[uuid.UUID]*models.Annotation
}

func newFakeAnnotations() *fakeAnnotations {
	return &fakeAnnotations{annotations: map[uuid.UUID]*models.Annotation{}}
}

func (f *fakeAnnotations) Create(ctx context.Context, a *models.Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.annotations {
		if existing.DatasetID == a.DatasetID &&
			existing.AnnotatorID == a.AnnotatorID &&
			existing.AnnotationType == a.AnnotationType {
			return store.ErrDuplicateAnnotation
		}
	}
	cp := *a
	f.annotations[a.ID] = &cp
	return nil
}

func (f *fakeAnnotations) ByID(ctx context.Context, id uuid.UUID) (*models.Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.annotations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAnnotations) ListForDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Annotation
	for _, a := range f.annotations {
		if a.DatasetID == datasetID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAnnotations) Update(ctx context.Context, a *models.Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.annotations[a.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Content = a.Content
	existing.ConfidenceScore = a.ConfidenceScore
	return nil
}

func (f *fakeAnnotations) Verify(ctx context.Context, id, verifierID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.annotations[id]
	if !ok {
		return store.ErrNotFound
	}
	a.IsVerified = true
	a.VerifiedBy = &verifierID
	a.VerifiedAt = &at
	return nil
}

func (f *fakeAnnotations) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.annotations[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.annotations, id)
	return nil
}

type annotationEnv struct {
	router  chi.Router
	tokens  map[uuid.UUID]string
	project *models.Project
	dataset *models.Dataset

	owner     *models.User
	annotator *models.User
	admin     *models.User
	viewer    *models.User
}

func newAnnotationEnv(t *testing.T) *annotationEnv {
	t.Helper()

	users := newFakeUsers()
	bearer := newFakeTokens()
	projects := newFakeProjects()
	datasets := newFakeDatasets()
	annotations := newFakeAnnotations()

	env := &annotationEnv{
		tokens:    map[uuid.UUID]string{},
		owner:     &models.User{ID: uuid.New(), Username: "owner", Email: "owner@example.com", IsActive: true},
		annotator: &models.User{ID: uuid.New(), Username: "annie", Email: "annie@example.com", IsActive: true},
		admin:     &models.User{ID: uuid.New(), Username: "adam", Email: "adam@example.com", IsActive: true},
		viewer:    &models.User{ID: uuid.New(), Username: "vera", Email: "vera@example.com", IsActive: true},
	}
	for _, u := range []*models.User{env.owner, env.annotator, env.admin, env.viewer} {
		users.put(u)
		tok, err := bearer.Issue(context.Background(), u.ID)
		require.NoError(t, err)
		env.tokens[u.ID] = tok
	}

	now := time.Now().UTC()
	env.project = &models.Project{
		ID: uuid.New(), CreatedAt: now, UpdatedAt: now,
		Name: "Speech Corpus", ProjectType: models.ProjectTypeAudio,
		Status: models.ProjectStatusActive, OwnerID: env.owner.ID,
	}
	require.NoError(t, projects.Create(context.Background(), env.project))
	projects.AddCollaborator(context.Background(), env.project.ID, env.annotator.ID, models.RoleAnnotator, now)
	projects.AddCollaborator(context.Background(), env.project.ID, env.admin.ID, models.RoleAdmin, now)
	projects.AddCollaborator(context.Background(), env.project.ID, env.viewer.ID, models.RoleViewer, now)

	env.dataset = &models.Dataset{
		ID: uuid.New(), ProjectID: env.project.ID, CreatedAt: now, UpdatedAt: now,
		Name: "clip-001", FilePath: "datasets/clip-001.wav", FileType: "audio/wav",
	}
	require.NoError(t, datasets.Create(context.Background(), env.dataset))

	h := NewAnnotationHandler(annotations, datasets, projects)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(bearer, users))
		r.Route("/projects/{projectID}/datasets/{datasetID}/annotations", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Put("/{annotationID}", h.Update)
			r.Delete("/{annotationID}", h.Delete)
			r.Post("/{annotationID}/verify", h.Verify)
		})
	})
	env.router = r
	return env
}

func (e *annotationEnv) basePath() string {
	return "/projects/" + e.project.ID.String() + "/datasets/" + e.dataset.ID.String() + "/annotations"
}

func (e *annotationEnv) do(t *testing.T, method, path string, as *models.User, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+e.tokens[as.ID])
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *annotationEnv) createAnnotation(t *testing.T, as *models.User) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, e.basePath()+"/", as, map[string]any{
		"annotation_type":  "transcription",
		"content":          map[string]string{"text": "hello world"},
		"confidence_score": 0.9,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["annotation"].(map[string]any)["id"].(string)
}

func TestAnnotationCreateByAnnotator(t *testing.T) {
	env := newAnnotationEnv(t)
	env.createAnnotation(t, env.annotator)

	rec := env.do(t, http.MethodGet, env.basePath()+"/", env.viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["annotations"], 1)
}

func TestAnnotationViewerCannotCreate(t *testing.T) {
	env := newAnnotationEnv(t)
	rec := env.do(t, http.MethodPost, env.basePath()+"/", env.viewer, map[string]any{
		"annotation_type": "transcription",
		"content":         map[string]string{"text": "nope"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnnotationDuplicateTypeRejected(t *testing.T) {
	env := newAnnotationEnv(t)
	env.createAnnotation(t, env.annotator)

	rec := env.do(t, http.MethodPost, env.basePath()+"/", env.annotator, map[string]any{
		"annotation_type": "transcription",
		"content":         map[string]string{"text": "again"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "annotation_type")
}

func TestAnnotationVerifyRequiresManager(t *testing.T) {
	env := newAnnotationEnv(t)
	id := env.createAnnotation(t, env.annotator)

	rec := env.do(t, http.MethodPost, env.basePath()+"/"+id+"/verify", env.annotator, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "annotators cannot verify")

	rec = env.do(t, http.MethodPost, env.basePath()+"/"+id+"/verify", env.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	annotation := decode(t, rec)["annotation"].(map[string]any)
	assert.Equal(t, true, annotation["is_verified"])
	assert.Equal(t, env.admin.ID.String(), annotation["verified_by"])
}

func TestAnnotationUpdateAuthorOnly(t *testing.T) {
	env := newAnnotationEnv(t)
	id := env.createAnnotation(t, env.annotator)

	rec := env.do(t, http.MethodPut, env.basePath()+"/"+id, env.admin, map[string]any{
		"content": map[string]string{"text": "rewritten"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, env.basePath()+"/"+id, env.annotator, map[string]any{
		"content":          map[string]string{"text": "corrected"},
		"confidence_score": 0.95,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAnnotationDeleteByManagerOrAuthor(t *testing.T) {
	env := newAnnotationEnv(t)
	id := env.createAnnotation(t, env.annotator)

	rec := env.do(t, http.MethodDelete, env.basePath()+"/"+id, env.viewer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, env.basePath()+"/"+id, env.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAnnotationInvalidConfidence(t *testing.T) {
	env := newAnnotationEnv(t)
	rec := env.do(t, http.MethodPost, env.basePath()+"/", env.annotator, map[string]any{
		"annotation_type":  "transcription",
		"content":          map[string]string{"text": "x"},
		"confidence_score": 1.5,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "confidence_score")
}
