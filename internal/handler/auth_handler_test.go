package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func postJSON(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestValidPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"meets all rules", "Passw0rd", true},
		{"too short", "Pa0x", false},
		{"no uppercase", "passw0rd", false},
		{"no lowercase", "PASSW0RD", false},
		{"no digit", "Password", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validPassword(tt.password))
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "invalid email",
			body: `{"email":"not-an-email","password":"Passw0rd","first_name":"Jane","last_name":"Doe"}`,
		},
		{
			name: "weak password",
			body: `{"email":"jane@example.com","password":"weak","first_name":"Jane","last_name":"Doe"}`,
		},
		{
			name: "missing names",
			body: `{"email":"jane@example.com","password":"Passw0rd"}`,
		},
		{
			name: "bad date of birth",
			body: `{"email":"jane@example.com","password":"Passw0rd","first_name":"Jane","last_name":"Doe","date_of_birth":"31-12-1990"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := postJSON(t, tt.body)
			require.NoError(t, Register(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mock := newMockDB(t)

	existing := sqlmock.NewRows([]string{"id", "email", "is_active"}).
		AddRow(uuid.New().String(), "jane@example.com", true)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(existing)

	c, rec := postJSON(t, `{"email":"jane@example.com","password":"Passw0rd","first_name":"Jane","last_name":"Doe"}`)
	require.NoError(t, Register(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmailRace(t *testing.T) {
	mock := newMockDB(t)

	// The pre-check sees nothing, then a concurrent registration wins the
	// insert; the unique index surfaces as a conflict, not a server error
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(gorm.ErrDuplicatedKey)
	mock.ExpectRollback()

	c, rec := postJSON(t, `{"email":"jane@example.com","password":"Passw0rd","first_name":"Jane","last_name":"Doe"}`)
	require.NoError(t, Register(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already registered")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_MissingFields(t *testing.T) {
	c, rec := postJSON(t, `{"email":"jane@example.com"}`)
	require.NoError(t, Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := postJSON(t, `{"email":"nobody@example.com","password":"Passw0rd"}`)
	require.NoError(t, Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	mock := newMockDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("Correct0ne"), bcrypt.MinCost)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active"}).
		AddRow(uuid.New().String(), "jane@example.com", string(hash), true)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	c, rec := postJSON(t, `{"email":"jane@example.com","password":"Wrong0ne!"}`)
	require.NoError(t, Login(c))

	// Same message as an unknown email, so callers cannot probe accounts
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_InactiveAccount(t *testing.T) {
	mock := newMockDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd"), bcrypt.MinCost)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active"}).
		AddRow(uuid.New().String(), "jane@example.com", string(hash), false)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	c, rec := postJSON(t, `{"email":"jane@example.com","password":"Passw0rd"}`)
	require.NoError(t, Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
	assert.NoError(t, mock.ExpectationsWereMet())
}
