package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maritime-edge/internal/common/errors"
)

// ==========================
// Postgres
// ==========================

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresRepository_Select(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT * FROM "inspections" WHERE "vessel_id" = $1 ORDER BY "created_at" DESC LIMIT $2`).
		WithArgs("vessel-1", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "findings", "score"}).
			AddRow("insp-1", []byte(`{"deficiencies":2}`), 87.5).
			AddRow("insp-2", []byte(`plain`), nil))

	rows, err := repo.Select(context.Background(), "inspections", Query{
		Filters:    []Filter{Eq("vessel_id", "vessel-1")},
		OrderBy:    "created_at",
		Descending: true,
		Limit:      20,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "insp-1", rows[0]["id"])
	assert.Equal(t, map[string]interface{}{"deficiencies": float64(2)}, rows[0]["findings"])
	assert.Equal(t, "plain", rows[1]["findings"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SelectWithoutClauses(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT * FROM "drills"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rows, err := repo.Select(context.Background(), "drills", Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SelectNilFilterIsNull(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT * FROM "inspections" WHERE "closed_at" IS NULL AND "vessel_id" = $1 LIMIT $2`).
		WithArgs("vessel-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("insp-open"))

	rows, err := repo.Select(context.Background(), "inspections", Query{
		Filters: []Filter{Eq("closed_at", nil), Eq("vessel_id", "vessel-1")},
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "insp-open", rows[0]["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Upsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	evaluatedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO "drill_evaluations" ("drill_id", "evaluated_at", "overall_score", "strengths") VALUES ($1, $2, $3, $4) ON CONFLICT ("drill_id") DO UPDATE SET "evaluated_at" = EXCLUDED."evaluated_at", "overall_score" = EXCLUDED."overall_score", "strengths" = EXCLUDED."strengths" RETURNING *`).
		WithArgs("drill-1", evaluatedAt, 82, `["fast muster"]`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "drill_id", "overall_score"}).AddRow("ev-1", "drill-1", 82))

	row, err := repo.Upsert(context.Background(), "drill_evaluations", Row{
		"drill_id":      "drill-1",
		"overall_score": 82,
		"strengths":     []string{"fast muster"},
		"evaluated_at":  evaluatedAt,
	}, "drill_id")
	require.NoError(t, err)
	assert.Equal(t, "ev-1", row["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpsertOnlyConflictColumns(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO "starfix_vessels" ("imo_number") VALUES ($1) ON CONFLICT ("imo_number") DO UPDATE SET "imo_number" = EXCLUDED."imo_number" RETURNING *`).
		WithArgs("9074729").
		WillReturnRows(sqlmock.NewRows([]string{"imo_number"}).AddRow("9074729"))

	_, err := repo.Upsert(context.Background(), "starfix_vessels", Row{"imo_number": "9074729"}, "imo_number")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_PlainInsertAndNilPointer(t *testing.T) {
	repo, mock := newMockRepo(t)
	var vessel *string

	mock.ExpectQuery(`INSERT INTO "training_quizzes" ("topic", "vessel_id") VALUES ($1, $2) RETURNING *`).
		WithArgs("fire", nil).
		WillReturnRows(sqlmock.NewRows([]string{"topic"}))

	row, err := repo.Upsert(context.Background(), "training_quizzes", Row{"topic": "fire", "vessel_id": vessel})
	require.NoError(t, err)
	assert.Equal(t, "fire", row["topic"], "falls back to the record when nothing is returned")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Errors(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT * FROM "drills" WHERE "id" = $1 LIMIT $2`).
		WithArgs("d-1", 1).
		WillReturnError(stderrors.New("connection reset"))

	_, err := First(context.Background(), repo, "drills", Eq("id", "d-1"))
	require.Error(t, err)
	efe := errors.Normalize(err)
	assert.Equal(t, errors.ErrCodeDatabase, efe.Code)
	assert.Equal(t, http.StatusInternalServerError, efe.Status())
	assert.Contains(t, efe.Details, "connection reset")

	_, err = repo.Upsert(context.Background(), "drills", Row{})
	assert.True(t, errors.Is(err, errors.ErrCodeDatabase))
}

// ==========================
// PostgREST
// ==========================

func TestPostgRESTRepository_Select(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/risk_assessments", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.vessel-9", q.Get("vessel_id"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "20", q.Get("limit"))

		_, _ = w.Write([]byte(`[{"id":"ra-1","risk_level":"high"}]`))
	}))
	defer srv.Close()

	repo := NewPostgRESTRepository(srv.URL+"/", "service-key", time.Second)
	rows, err := repo.Select(context.Background(), "risk_assessments", Query{
		Filters: []Filter{Eq("vessel_id", "vessel-9")}, OrderBy: "created_at", Descending: true, Limit: 20,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "high", rows[0]["risk_level"])
}

func TestPostgRESTRepository_SelectNilFilterIsNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "is.null", q.Get("closed_at"))
		assert.Equal(t, "eq.vessel-9", q.Get("vessel_id"))
		_, _ = w.Write([]byte(`[{"id":"insp-open"}]`))
	}))
	defer srv.Close()

	repo := NewPostgRESTRepository(srv.URL, "service-key", time.Second)
	rows, err := repo.Select(context.Background(), "inspections", Query{
		Filters: []Filter{Eq("closed_at", nil), Eq("vessel_id", "vessel-9")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestPostgRESTRepository_Upsert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/ionosphere_corrections", r.URL.Path)
		assert.Equal(t, "vessel_id,epoch", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates,return=representation", r.Header.Get("Prefer"))

		body, _ := io.ReadAll(r.Body)
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &rec))
		rec["id"] = "corr-1"
		out, _ := json.Marshal([]map[string]interface{}{rec})
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(out)
	}))
	defer srv.Close()

	repo := NewPostgRESTRepository(srv.URL, "service-key", time.Second)
	row, err := repo.Upsert(context.Background(), "ionosphere_corrections",
		Row{"vessel_id": "v-1", "epoch": "2024-05-10T12:00:00Z", "vtec": 42.5}, "vessel_id", "epoch")
	require.NoError(t, err)
	assert.Equal(t, "corr-1", row["id"])
	assert.Equal(t, 42.5, row["vtec"])
}

func TestPostgRESTRepository_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key"}`))
	}))
	defer srv.Close()

	repo := NewPostgRESTRepository(srv.URL, "service-key", time.Second)
	_, err := repo.Upsert(context.Background(), "ai_reports", Row{"id": "r-1"})
	require.Error(t, err)
	efe := errors.Normalize(err)
	assert.Equal(t, errors.ErrCodeDatabase, efe.Code)
	assert.Contains(t, efe.Details, "duplicate key")
}

// ==========================
// Memory
// ==========================

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	repo.Seed("inspections",
		Row{"id": "a", "vessel_id": "v1", "created_at": "2024-01-01"},
		Row{"id": "b", "vessel_id": "v1", "created_at": "2024-03-01"},
		Row{"id": "c", "vessel_id": "v2", "created_at": "2024-02-01"},
	)

	rows, err := repo.Select(ctx, "inspections", Query{
		Filters: []Filter{Eq("vessel_id", "v1")}, OrderBy: "created_at", Descending: true, Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0]["id"])

	_, err = repo.Upsert(ctx, "drill_evaluations", Row{"drill_id": "d1", "overall_score": 50}, "drill_id")
	require.NoError(t, err)
	row, err := repo.Upsert(ctx, "drill_evaluations", Row{"drill_id": "d1", "overall_score": 75}, "drill_id")
	require.NoError(t, err)
	assert.Equal(t, 75, row["overall_score"])
	assert.Len(t, repo.Rows("drill_evaluations"), 1)

	repo.Seed("open_items", Row{"id": "x", "closed_at": nil}, Row{"id": "y", "closed_at": "2024-04-01"}, Row{"id": "z"})
	rows, err = repo.Select(ctx, "open_items", Query{Filters: []Filter{Eq("closed_at", nil)}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.ElementsMatch(t, []interface{}{"x", "z"}, []interface{}{rows[0]["id"], rows[1]["id"]})

	repo.FailOn("drill_evaluations", stderrors.New("disk full"))
	_, err = repo.Upsert(ctx, "drill_evaluations", Row{"drill_id": "d2"}, "drill_id")
	assert.True(t, errors.Is(err, errors.ErrCodeDatabase))
}

func TestPostgRESTRepository_Ping(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"swagger":"2.0"}`))
	}))
	defer srv.Close()

	repo := NewPostgRESTRepository(srv.URL, "service-key", time.Second)
	assert.NoError(t, repo.Ping(context.Background()))

	healthy = false
	assert.Error(t, repo.Ping(context.Background()))
}
