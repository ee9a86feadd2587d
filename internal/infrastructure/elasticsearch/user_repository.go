package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
)

const requestTimeout = 5 * time.Second

// usersMapping keeps email as an exact-match keyword so term lookups work.
const usersMapping = `{
  "mappings": {
    "dynamic": "strict",
    "properties": {
      "id":            {"type": "keyword"},
      "email":         {"type": "keyword"},
      "state":         {"type": "keyword"},
      "status":        {"type": "keyword"},
      "password_hash": {"type": "keyword", "index": false},
      "version":       {"type": "long"}
    }
  }
}`

// UserRepository stores users as documents whose _id is the user id. Documents are
// written with external versioning set to the record version, so Elasticsearch itself
// rejects a write that does not advance the stored version.
type UserRepository struct {
	es    *elasticsearch.Client
	index string
}

func NewUserRepository(es *elasticsearch.Client, index string) *UserRepository {
	if index == "" {
		index = "users"
	}
	return &UserRepository{es: es, index: index}
}

// EnsureIndex creates the users index with its mapping unless it already exists.
func (r *UserRepository) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.IndicesCreateRequest{Index: r.index, Body: strings.NewReader(usersMapping)}.Do(c, r.es)
	if err != nil {
		return fmt.Errorf("create index %s: %w", r.index, err)
	}
	defer func() { _ = res.Body.Close() }()
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("resource_already_exists_exception")) {
		return nil
	}
	return fmt.Errorf("create index %s: %s", r.index, res.Status())
}

func (r *UserRepository) AllocateID(ctx context.Context) (uuid.UUID, error) {
	for {
		id := uuid.New()
		ok, err := r.ExistsByID(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		if !ok {
			return id, nil
		}
	}
}

func (r *UserRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.ExistsRequest{Index: r.index, DocumentID: id.String()}.Do(c, r.es)
	if err != nil {
		return false, apperr.Internal("check user id", err)
	}
	defer func() { _ = res.Body.Close() }()
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, apperr.Internal("check user id: "+res.Status(), nil)
	}
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.CountRequest{Index: []string{r.index}, Body: emailQuery(email, 0)}.Do(c, r.es)
	if err != nil {
		return false, apperr.Internal("check user email", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return false, apperr.Internal("check user email: "+res.Status(), nil)
	}
	var parsed struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return false, apperr.Internal("decode count response", err)
	}
	return parsed.Count > 0, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.UserRecord, error) {
	rec, found, err := r.get(ctx, id)
	if err != nil {
		return repository.UserRecord{}, err
	}
	if !found {
		return repository.UserRecord{}, apperr.NotFound("user with id %s not found", id)
	}
	return rec, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (repository.UserRecord, error) {
	rec, found, err := r.searchEmail(ctx, email)
	if err != nil {
		return repository.UserRecord{}, err
	}
	if !found {
		return repository.UserRecord{}, apperr.NotFound("user with email %s not found", email)
	}
	return rec, nil
}

// Save checks the stored version and email ownership, then indexes the document with
// version_type=external. A concurrent writer that got there first makes the index
// request fail with 409, which is reported as Conflict. Email uniqueness is checked
// before the write only; Elasticsearch has no unique constraint to back it.
func (r *UserRepository) Save(ctx context.Context, rec repository.UserRecord) error {
	if rec.Version == 0 {
		return repository.CheckVersion(rec, 0, false)
	}
	stored, exists, err := r.get(ctx, rec.ID)
	if err != nil {
		return err
	}
	if err := repository.CheckVersion(rec, stored.Version, exists); err != nil {
		return err
	}
	owner, taken, err := r.searchEmail(ctx, rec.Email)
	if err != nil {
		return err
	}
	if taken && owner.ID != rec.ID {
		return apperr.Conflict("email %s is already taken", rec.Email)
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return apperr.Internal("encode user document", err)
	}
	version := int(rec.Version)
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.IndexRequest{
		Index:       r.index,
		DocumentID:  rec.ID.String(),
		Body:        bytes.NewReader(body),
		Version:     &version,
		VersionType: "external",
		Refresh:     "wait_for",
	}.Do(c, r.es)
	if err != nil {
		return apperr.Internal("index user", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusConflict {
		return apperr.Conflict("user %s was modified concurrently", rec.ID)
	}
	if res.IsError() {
		return apperr.Internal("index user: "+res.Status(), nil)
	}
	return nil
}

func (r *UserRepository) get(ctx context.Context, id uuid.UUID) (repository.UserRecord, bool, error) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.GetRequest{Index: r.index, DocumentID: id.String()}.Do(c, r.es)
	if err != nil {
		return repository.UserRecord{}, false, apperr.Internal("get user", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusNotFound {
		return repository.UserRecord{}, false, nil
	}
	if res.IsError() {
		return repository.UserRecord{}, false, apperr.Internal("get user: "+res.Status(), nil)
	}
	var parsed struct {
		Found  bool                  `json:"found"`
		Source repository.UserRecord `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return repository.UserRecord{}, false, apperr.Internal("decode user document", err)
	}
	return parsed.Source, parsed.Found, nil
}

func (r *UserRepository) searchEmail(ctx context.Context, email string) (repository.UserRecord, bool, error) {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := esapi.SearchRequest{Index: []string{r.index}, Body: emailQuery(email, 1)}.Do(c, r.es)
	if err != nil {
		return repository.UserRecord{}, false, apperr.Internal("search user by email", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return repository.UserRecord{}, false, apperr.Internal("search user by email: "+res.Status(), nil)
	}
	var parsed struct {
		Hits struct {
			Hits []struct {
				Source repository.UserRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return repository.UserRecord{}, false, apperr.Internal("decode search response", err)
	}
	if len(parsed.Hits.Hits) == 0 {
		return repository.UserRecord{}, false, nil
	}
	return parsed.Hits.Hits[0].Source, true, nil
}

// emailQuery builds a term query on email; size 0 omits the size field for _count.
func emailQuery(email string, size int) io.Reader {
	q := map[string]any{
		"query": map[string]any{"term": map[string]any{"email": email}},
	}
	if size > 0 {
		q["size"] = size
	}
	b, _ := json.Marshal(q)
	return bytes.NewReader(b)
}

var _ repository.UserRepository = (*UserRepository)(nil)
