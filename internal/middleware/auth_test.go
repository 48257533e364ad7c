package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"genealogy-service/pkg/config"
	"genealogy-service/pkg/database"
	"genealogy-service/pkg/jwtutil"
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
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "genealogy_test_mw"}})
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

func runAuth(t *testing.T, token string) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/users/profile", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := AuthMiddleware(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, reached
}

func TestAuthMiddleware_ValidTokenActiveUser(t *testing.T) {
	mock := newMockDB(t)
	userID := uuid.New()

	token, err := jwtutil.GenerateToken("user@example.com", userID, "free")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "account_type", "is_active"}).
		AddRow(userID.String(), "user@example.com", "Jane", "Doe", "free", true)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	rec, reached := runAuth(t, token)
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMiddleware_InactiveAccount(t *testing.T) {
	mock := newMockDB(t)
	userID := uuid.New()

	token, err := jwtutil.GenerateToken("user@example.com", userID, "free")
	require.NoError(t, err)

	// Live lookup filters on is_active, so a deactivated account comes back
	// as no rows
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec, reached := runAuth(t, token)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "inactive")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	newMockDB(t)

	rec, reached := runAuth(t, "")
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	newMockDB(t)

	rec, reached := runAuth(t, "not-a-valid-token")
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuthMiddleware_AnonymousPassesThrough(t *testing.T) {
	newMockDB(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/family-trees/123", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := OptionalAuthMiddleware(func(c echo.Context) error {
		assert.Nil(t, PrincipalFromContext(c))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuthMiddleware_ValidTokenResolvesPrincipal(t *testing.T) {
	mock := newMockDB(t)
	userID := uuid.New()

	token, err := jwtutil.GenerateToken("user@example.com", userID, "premium")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "account_type", "is_active"}).
		AddRow(userID.String(), "user@example.com", "Jane", "Doe", "premium", true)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/family-trees/123", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := OptionalAuthMiddleware(func(c echo.Context) error {
		p := PrincipalFromContext(c)
		require.NotNil(t, p)
		assert.Equal(t, userID, p.ID)
		assert.Equal(t, "premium", p.AccountType)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
