package integrationtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dirk.krummacker/central-contacts/internal/config"
	"gitlab.com/dirk.krummacker/central-contacts/internal/service"
	"gitlab.com/dirk.krummacker/central-contacts/internal/store"
	"gitlab.com/dirk.krummacker/central-contacts/pkg/model"
)

// backend is a store under test together with a function that builds a fresh instance.
type backend struct {
	name string
	open func(t *testing.T) store.ContactStore
}

// backends returns the in-memory store and, if DBHOST is set, the MySQL store. The MySQL database
// must already contain the contacts table, see cmd/migration.
//
// Usage example:
//
//	> DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go test ./internal/integrationtest
func backends() []backend {
	list := []backend{{
		name: "memory",
		open: func(*testing.T) store.ContactStore { return store.NewMemoryStore() },
	}}
	if os.Getenv("DBHOST") == "" {
		return list
	}
	return append(list, backend{
		name: "mysql",
		open: func(t *testing.T) store.ContactStore {
			t.Setenv("CONFIG_FILE", "")
			cfg, err := config.Load()
			require.NoError(t, err)
			sqlDB, err := store.OpenMySQL(cfg.MySQL.Driver())
			require.NoError(t, err)
			s, err := store.NewMySQLStore(sqlDB)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	})
}

// setupRouter wires store, service and router the way cmd/service does.
func setupRouter(s store.ContactStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	return service.SetupHttpRouter(service.NewContactService(s, nil), service.RouterOptions{})
}

func listContacts(t *testing.T, router *gin.Engine) []model.Contact {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/contacts", nil)
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)
	var contacts []model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contacts))
	return contacts
}

func createContact(router *gin.Engine, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("POST", "/contacts", strings.NewReader(body))
	router.ServeHTTP(recorder, request)
	return recorder
}

// TestContactHappyPath tests a POST followed by a GET with valid data.
func TestContactHappyPath(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			router := setupRouter(b.open(t))
			before := listContacts(t, router)

			// test the endpoint for creating a contact
			postRecorder := createContact(router, `
				{
					"name": "Jane Doe",
					"phone": "555-1111",
					"email": "jane@example.com"
				}
			`)
			assert.Equal(t, http.StatusCreated, postRecorder.Code)
			var created model.Contact
			require.NoError(t, json.Unmarshal(postRecorder.Body.Bytes(), &created))
			assert.NotZero(t, created.Id)
			assert.Equal(t, "Jane Doe", created.Name)
			assert.Equal(t, "555-1111", created.Phone)
			assert.Equal(t, "jane@example.com", created.Email)

			// test that the list ends with exactly that contact
			after := listContacts(t, router)
			require.Len(t, after, len(before)+1)
			assert.Equal(t, created, after[len(after)-1])
		})
	}
}

// TestContactCreationOrder tests that two sequential POSTs are listed in creation order.
func TestContactCreationOrder(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			router := setupRouter(b.open(t))
			before := listContacts(t, router)

			var first, second model.Contact
			json.Unmarshal(createContact(router, `{"name": "Aaron"}`).Body.Bytes(), &first)
			json.Unmarshal(createContact(router, `{"name": "Berta"}`).Body.Bytes(), &second)
			assert.NotEqual(t, first.Id, second.Id)
			assert.Less(t, first.Id, second.Id)

			after := listContacts(t, router)
			require.Len(t, after, len(before)+2)
			assert.Equal(t, []model.Contact{first, second}, after[len(before):])
		})
	}
}

// TestCreateContactInvalidBody tests a POST with different forms of invalid request body data and
// expects that nothing is stored.
func TestCreateContactInvalidBody(t *testing.T) {
	invalidRequestBodies := []string{
		"",
		"not JSON",
		`{"phone": "+49 0815 4711"}`,
		`{
			"name": "Erika"
			"phone": "+49 0815 4711"
		}`, // commas missing
	}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			router := setupRouter(b.open(t))
			before := listContacts(t, router)
			for _, body := range invalidRequestBodies {
				recorder := createContact(router, body)
				assert.Equal(t, http.StatusBadRequest, recorder.Code, "request body: "+body)
			}
			assert.Equal(t, before, listContacts(t, router))
		})
	}
}

// TestFreshMemoryStoreScenario runs the documented scenario on a fresh in-memory store, where the
// ids are known in advance.
func TestFreshMemoryStoreScenario(t *testing.T) {
	router := setupRouter(store.NewMemoryStore())
	assert.Empty(t, listContacts(t, router))

	recorder := createContact(router, `{"name": "Jane Doe", "phone": "555-1111", "email": "jane@example.com"}`)
	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.JSONEq(t, `{"id": 1, "name": "Jane Doe", "phone": "555-1111", "email": "jane@example.com"}`, recorder.Body.String())

	assert.Equal(t, []model.Contact{
		{Id: 1, Name: "Jane Doe", Phone: "555-1111", Email: "jane@example.com"},
	}, listContacts(t, router))

	recorder = createContact(router, `{"name": "John Roe", "phone": "555-2222", "email": "john@example.com"}`)
	assert.Equal(t, http.StatusCreated, recorder.Code)
	contacts := listContacts(t, router)
	require.Len(t, contacts, 2)
	assert.Equal(t, int64(1), contacts[0].Id)
	assert.Equal(t, int64(2), contacts[1].Id)
	assert.Equal(t, "John Roe", contacts[1].Name)
}
