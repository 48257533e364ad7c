package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"genealogy-service/internal/access"
	"genealogy-service/pkg/config"
	"genealogy-service/pkg/database"
	"genealogy-service/prometheus"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	Initialize(&config.Config{Auth: config.AuthConfig{BcryptCost: 4}})
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "genealogy_test_handler"}})
	os.Exit(m.Run())
}

func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	database.SetDB(gormDB)
	t.Cleanup(func() { database.SetDB(nil) })
	return mock
}

// getContext builds a GET request context with an optional principal and a
// single path parameter.
func getContext(t *testing.T, p *access.Principal, paramName, paramValue string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(paramName)
	c.SetParamValues(paramValue)
	if p != nil {
		c.Set("principal", p)
	}
	return c, rec
}

func treeRows(treeID, ownerID uuid.UUID, privacy string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "name", "privacy_level", "person_count", "is_deleted"}).
		AddRow(treeID.String(), ownerID.String(), "Doe family", privacy, 3, false)
}

func ownerRows(ownerID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "is_active"}).
		AddRow(ownerID.String(), "owner@example.com", "John", "Doe", true)
}

func TestGetTree_PublicTreeAnonymousRead(t *testing.T) {
	mock := newMockDB(t)
	treeID := uuid.New()
	ownerID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "family_trees"`).
		WillReturnRows(treeRows(treeID, ownerID, "public"))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(ownerRows(ownerID))

	c, rec := getContext(t, nil, "id", treeID.String())
	require.NoError(t, GetTree(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), treeID.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTree_PrivateTreeStranger(t *testing.T) {
	mock := newMockDB(t)
	treeID := uuid.New()
	ownerID := uuid.New()
	stranger := &access.Principal{ID: uuid.New(), Email: "stranger@example.com"}

	mock.ExpectQuery(`SELECT \* FROM "family_trees"`).
		WillReturnRows(treeRows(treeID, ownerID, "private"))
	// No collaboration grant either
	mock.ExpectQuery(`SELECT \* FROM "collaboration_permissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := getContext(t, stranger, "id", treeID.String())
	require.NoError(t, GetTree(c))

	// Denied reads look exactly like missing records
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTree_PrivateTreeOwner(t *testing.T) {
	mock := newMockDB(t)
	treeID := uuid.New()
	ownerID := uuid.New()
	owner := &access.Principal{ID: ownerID, Email: "owner@example.com"}

	mock.ExpectQuery(`SELECT \* FROM "family_trees"`).
		WillReturnRows(treeRows(treeID, ownerID, "private"))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(ownerRows(ownerID))

	c, rec := getContext(t, owner, "id", treeID.String())
	require.NoError(t, GetTree(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTree_PrivateTreeCollaboratorView(t *testing.T) {
	mock := newMockDB(t)
	treeID := uuid.New()
	ownerID := uuid.New()
	collaborator := &access.Principal{ID: uuid.New(), Email: "collab@example.com"}

	mock.ExpectQuery(`SELECT \* FROM "family_trees"`).
		WillReturnRows(treeRows(treeID, ownerID, "private"))
	mock.ExpectQuery(`SELECT \* FROM "collaboration_permissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "user_id", "tree_id", "permission_level"}).
			AddRow(uuid.New().String(), uuid.New().String(), collaborator.ID.String(), treeID.String(), "view"))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(ownerRows(ownerID))

	c, rec := getContext(t, collaborator, "id", treeID.String())
	require.NoError(t, GetTree(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTree_DeletedTree(t *testing.T) {
	mock := newMockDB(t)
	treeID := uuid.New()
	owner := &access.Principal{ID: uuid.New(), Email: "owner@example.com"}

	// Scoped query excludes deleted trees, so the row never comes back
	mock.ExpectQuery(`SELECT \* FROM "family_trees"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := getContext(t, owner, "id", treeID.String())
	require.NoError(t, GetTree(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTree_MalformedID(t *testing.T) {
	newMockDB(t)

	c, rec := getContext(t, nil, "id", "not-a-uuid")
	require.NoError(t, GetTree(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
