package elasticsearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/internal/domain/repository/repositorytest"
	"github.com/oksasatya/user-account-service/pkg/helpers"
)

// fakeES serves the handful of document APIs the repository uses, with external
// versioning semantics on index requests.
type fakeES struct {
	mu      sync.Mutex
	created bool
	docs    map[string]repository.UserRecord
	broken  bool
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.broken {
		reply(w, http.StatusInternalServerError, map[string]any{"error": "boom"})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodPut:
		if f.created {
			reply(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"type": "resource_already_exists_exception"}})
			return
		}
		f.created = true
		reply(w, http.StatusOK, map[string]any{"acknowledged": true})
	case len(parts) == 2 && parts[1] == "_search":
		var hits []map[string]any
		if rec, ok := f.byEmail(termEmail(r)); ok {
			hits = append(hits, map[string]any{"_id": rec.ID.String(), "_source": rec})
		}
		reply(w, http.StatusOK, map[string]any{"hits": map[string]any{"hits": hits}})
	case len(parts) == 2 && parts[1] == "_count":
		count := 0
		if _, ok := f.byEmail(termEmail(r)); ok {
			count = 1
		}
		reply(w, http.StatusOK, map[string]any{"count": count})
	case len(parts) == 3 && parts[1] == "_doc":
		f.serveDoc(w, r, parts[2])
	default:
		reply(w, http.StatusBadRequest, map[string]any{"error": "unexpected " + r.Method + " " + r.URL.Path})
	}
}

func (f *fakeES) serveDoc(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := f.docs[id]
	switch r.Method {
	case http.MethodHead:
		if ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case http.MethodGet:
		if !ok {
			reply(w, http.StatusNotFound, map[string]any{"_id": id, "found": false})
			return
		}
		reply(w, http.StatusOK, map[string]any{"_id": id, "found": true, "_version": rec.Version, "_source": rec})
	case http.MethodPut, http.MethodPost:
		version, _ := strconv.ParseUint(r.URL.Query().Get("version"), 10, 64)
		if r.URL.Query().Get("version_type") != "external" || version == 0 {
			reply(w, http.StatusBadRequest, map[string]any{"error": "external version required"})
			return
		}
		if ok && version <= rec.Version {
			reply(w, http.StatusConflict, map[string]any{"error": map[string]any{"type": "version_conflict_engine_exception"}})
			return
		}
		var doc repository.UserRecord
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			reply(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		f.docs[id] = doc
		reply(w, http.StatusOK, map[string]any{"_id": id, "_version": version, "result": "updated"})
	}
}

func (f *fakeES) byEmail(email string) (repository.UserRecord, bool) {
	for _, rec := range f.docs {
		if rec.Email == email {
			return rec, true
		}
	}
	return repository.UserRecord{}, false
}

func termEmail(r *http.Request) string {
	var body struct {
		Query struct {
			Term struct {
				Email string `json:"email"`
			} `json:"term"`
		} `json:"query"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body.Query.Term.Email
}

func reply(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newRepo(t *testing.T) (*UserRepository, *fakeES) {
	t.Helper()
	fake := &fakeES{docs: map[string]repository.UserRecord{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := helpers.NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)
	return NewUserRepository(client, "users"), fake
}

func TestUserRepositoryContract(t *testing.T) {
	repositorytest.Run(t, func(t *testing.T) repository.UserRepository {
		repo, _ := newRepo(t)
		return repo
	})
}

func TestEnsureIndexIsIdempotent(t *testing.T) {
	repo, fake := newRepo(t)

	require.NoError(t, repo.EnsureIndex(context.Background()))
	require.NoError(t, repo.EnsureIndex(context.Background()))
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, fake.created)
}

func TestSaveWritesExternalVersion(t *testing.T) {
	repo, fake := newRepo(t)
	rec := repositorytest.Record(uuid.New(), "a@x.com")

	require.NoError(t, repo.Save(context.Background(), rec))
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, rec, fake.docs[rec.ID.String()])
}

func TestServerErrorsAreInternal(t *testing.T) {
	repo, fake := newRepo(t)
	fake.mu.Lock()
	fake.broken = true
	fake.mu.Unlock()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrInternal)

	_, err = repo.ExistsByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, apperr.ErrInternal)

	err = repo.Save(ctx, repositorytest.Record(uuid.New(), "a@x.com"))
	assert.ErrorIs(t, err, apperr.ErrInternal)

	assert.Error(t, repo.EnsureIndex(ctx))
}
