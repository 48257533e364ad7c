package handler

import (
	"fmt"
	"net/http"
	"testing"

	"genealogy-service/internal/access"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRelationship_SelfEdge(t *testing.T) {
	personID := uuid.New()
	body := fmt.Sprintf(`{"person_id":%q,"related_person_id":%q,"relationship_type":"spouse"}`,
		personID, personID)

	c, rec := postJSON(t, body)
	c.Set("principal", &access.Principal{ID: uuid.New()})

	require.NoError(t, CreateRelationship(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be related to themselves")
}

func TestCreateRelationship_InvalidType(t *testing.T) {
	body := fmt.Sprintf(`{"person_id":%q,"related_person_id":%q,"relationship_type":"cousin"}`,
		uuid.New(), uuid.New())

	c, rec := postJSON(t, body)
	c.Set("principal", &access.Principal{ID: uuid.New()})

	require.NoError(t, CreateRelationship(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "relationship_type")
}

func TestCreateRelationship_CrossTreeRejected(t *testing.T) {
	mock := newMockDB(t)
	ownerID := uuid.New()
	personID := uuid.New()
	relatedID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "persons"`).
		WillReturnRows(personRows(personID, uuid.New()))
	mock.ExpectQuery(`SELECT .* FROM "persons"`).
		WillReturnRows(personRows(relatedID, uuid.New()))

	body := fmt.Sprintf(`{"person_id":%q,"related_person_id":%q,"relationship_type":"parent"}`,
		personID, relatedID)
	c, rec := postJSON(t, body)
	c.Set("principal", &access.Principal{ID: ownerID})

	require.NoError(t, CreateRelationship(c))

	// The edge never reaches storage when the endpoints span trees
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "same family tree")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRelationship_Unauthenticated(t *testing.T) {
	body := fmt.Sprintf(`{"person_id":%q,"related_person_id":%q,"relationship_type":"parent"}`,
		uuid.New(), uuid.New())

	c, rec := postJSON(t, body)

	require.NoError(t, CreateRelationship(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
