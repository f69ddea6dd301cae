package client_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/todo-api/internal/client"
	"github.com/yukikurage/todo-api/internal/database"
	"github.com/yukikurage/todo-api/internal/handlers"
	"github.com/yukikurage/todo-api/internal/logger"
	"github.com/yukikurage/todo-api/internal/repository"
	"github.com/yukikurage/todo-api/internal/services"
	"github.com/yukikurage/todo-api/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := database.OpenSQLite(filepath.Join(dir, "client.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)

	store, err := storage.NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	log := logger.Discard()
	authService := services.NewAuthService(repository.NewUserRepository(db), services.NewTokenService("client-secret", time.Hour))
	todoService := services.NewTodoService(repository.NewTodoRepository(db))

	r := gin.New()
	handlers.RegisterRoutes(r, handlers.Routes{
		Auth:     handlers.NewAuthHandler(authService, log),
		Todos:    handlers.NewTodoHandler(todoService, storage.NewUploader(store, ""), log, 1<<20),
		Assets:   handlers.NewAssetHandler(store, log),
		Verifier: authService,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		sqlDB.Close()
	})
	return srv
}

func tags(csv string) *string {
	return &csv
}

type AppTestSuite struct {
	suite.Suite
	srv     *httptest.Server
	store   *client.MemorySessionStore
	session *client.SessionContext
	app     *client.App
	ctx     context.Context
}

func (suite *AppTestSuite) SetupTest() {
	suite.srv = newTestServer(suite.T())
	suite.store = &client.MemorySessionStore{}
	suite.ctx = context.Background()

	session, err := client.NewSessionContext(suite.store)
	suite.Require().NoError(err)
	suite.session = session

	c, err := client.NewClient(suite.srv.URL, session, suite.srv.Client())
	suite.Require().NoError(err)
	suite.app = client.NewApp(c, session)
}

func (suite *AppTestSuite) loggedIn(username string) *client.TodoView {
	suite.Require().NoError(suite.app.Register(suite.ctx, username, "secret1"))
	view, err := suite.app.TodoView(5)
	suite.Require().NoError(err)
	suite.Require().NoError(view.Refresh(suite.ctx))
	return view
}

func (suite *AppTestSuite) TestStartWithoutSession() {
	suite.Equal(client.StateUnauthenticated, suite.app.Start())

	_, err := suite.app.TodoView(10)
	suite.ErrorIs(err, client.ErrNotAuthenticated)
}

func (suite *AppTestSuite) TestRegisterLogsIn() {
	suite.Require().NoError(suite.app.Register(suite.ctx, "alice", "secret1"))
	suite.Equal(client.StateAuthenticated, suite.app.State())

	session, ok := suite.app.Session()
	suite.Require().True(ok)
	suite.NotEmpty(session.Token)
	suite.NotEmpty(session.UserID)

	stored, err := suite.store.Load()
	suite.Require().NoError(err)
	suite.Equal(session, stored)
}

func (suite *AppTestSuite) TestLoginFailureStaysLoggedOut() {
	suite.Require().NoError(suite.app.Register(suite.ctx, "alice", "secret1"))
	suite.Require().NoError(suite.app.Logout())

	err := suite.app.Login(suite.ctx, "alice", "wrong-password")
	suite.Require().Error(err)
	suite.True(client.IsUnauthorized(err))
	suite.Equal(client.StateUnauthenticated, suite.app.State())
	_, ok := suite.app.Session()
	suite.False(ok)

	suite.Require().NoError(suite.app.Login(suite.ctx, "alice", "secret1"))
	suite.Equal(client.StateAuthenticated, suite.app.State())
}

func (suite *AppTestSuite) TestRegisterDuplicate() {
	suite.Require().NoError(suite.app.Register(suite.ctx, "alice", "secret1"))
	suite.Require().NoError(suite.app.Logout())

	err := suite.app.Register(suite.ctx, "alice", "secret1")
	var apiErr *client.APIError
	suite.Require().ErrorAs(err, &apiErr)
	suite.Equal(409, apiErr.StatusCode)
}

func (suite *AppTestSuite) TestLogoutClearsSession() {
	suite.loggedIn("alice")

	suite.Require().NoError(suite.app.Logout())
	suite.Equal(client.StateUnauthenticated, suite.app.State())

	stored, err := suite.store.Load()
	suite.Require().NoError(err)
	suite.False(stored.Valid())
}

func (suite *AppTestSuite) TestRejectedTokenForcesLogout() {
	suite.Require().NoError(suite.session.Begin("expired-or-forged", "someone"))
	suite.Require().Equal(client.StateAuthenticated, suite.app.Start())

	view, err := suite.app.TodoView(10)
	suite.Require().NoError(err)

	err = view.Refresh(suite.ctx)
	suite.Require().Error(err)
	suite.True(client.IsUnauthorized(err))
	suite.NotEmpty(view.Notice())
	suite.Equal(client.StateUnauthenticated, suite.app.State())
	_, ok := suite.session.Current()
	suite.False(ok)
}

func (suite *AppTestSuite) TestPagingAndSearch() {
	view := suite.loggedIn("alice")
	suite.Empty(view.Todos())

	for i := 0; i < 12; i++ {
		title := "chore"
		if i%3 == 0 {
			title = "shopping"
		}
		_, err := view.Save(suite.ctx, "", client.TodoInput{Title: title, Description: "item"})
		suite.Require().NoError(err)
	}

	suite.Require().NoError(view.SetPage(suite.ctx, 1))
	suite.Len(view.Todos(), 5)
	suite.Equal(3, view.TotalPages())

	suite.Require().NoError(view.NextPage(suite.ctx))
	suite.Equal(2, view.Page())
	suite.Require().NoError(view.NextPage(suite.ctx))
	suite.Equal(3, view.Page())
	suite.Len(view.Todos(), 2)
	suite.Require().NoError(view.NextPage(suite.ctx))
	suite.Equal(3, view.Page())

	suite.Require().NoError(view.SetSearch(suite.ctx, "shop"))
	suite.Equal(1, view.Page())
	suite.Len(view.Todos(), 4)
	suite.Equal(1, view.TotalPages())
	suite.Empty(view.Notice())
}

func (suite *AppTestSuite) TestTagFilterCoversLoadedPageOnly() {
	suite.Require().NoError(suite.app.Register(suite.ctx, "alice", "secret1"))
	view, err := suite.app.TodoView(2)
	suite.Require().NoError(err)

	for _, in := range []client.TodoInput{
		{Title: "a", Description: "x", Tags: tags("work, home")},
		{Title: "b", Description: "x", Tags: tags("home")},
		{Title: "c", Description: "x", Tags: tags("errand")},
	} {
		_, err := view.Save(suite.ctx, "", in)
		suite.Require().NoError(err)
	}
	suite.Require().NoError(view.SetPage(suite.ctx, 1))

	suite.Equal([]string{"home", "work"}, view.Tags())

	view.SelectTag("work")
	suite.Require().Len(view.Visible(), 1)
	suite.Equal("a", view.Visible()[0].Title)

	view.SelectTag("errand")
	suite.Empty(view.Visible())

	view.SelectTag("")
	suite.Len(view.Visible(), 2)
}

func (suite *AppTestSuite) TestSaveWithAttachmentsAndDownload() {
	view := suite.loggedIn("alice")

	created, err := view.Save(suite.ctx, "", client.TodoInput{
		Title:       "Taxes",
		Description: "file by April",
		Tags:        tags("finance"),
		Image:       &client.Attachment{Name: "receipt.png", Body: strings.NewReader("png-data")},
		Files: []client.Attachment{
			{Name: "w2.txt", Body: strings.NewReader("w2 contents")},
		},
	})
	suite.Require().NoError(err)
	suite.Require().NotNil(created.Image)
	suite.Require().Len(created.Files, 1)
	suite.Len(view.Todos(), 1)

	var buf bytes.Buffer
	suite.Require().NoError(view.Download(suite.ctx, created.Files[0], &buf))
	suite.Equal("w2 contents", buf.String())

	edited, err := view.Save(suite.ctx, created.TodoID, client.TodoInput{Title: "Taxes 2026", Tags: tags("finance, urgent")})
	suite.Require().NoError(err)
	suite.Equal("Taxes 2026", edited.Title)
	suite.Equal("file by April", edited.Description)
	suite.Equal([]string{"finance", "urgent"}, edited.Tags)
	suite.Equal(created.Files, edited.Files)
}

func (suite *AppTestSuite) TestSaveValidationErrorSetsNotice() {
	view := suite.loggedIn("alice")

	_, err := view.Save(suite.ctx, "", client.TodoInput{Description: "no title"})
	var apiErr *client.APIError
	suite.Require().ErrorAs(err, &apiErr)
	suite.Equal(400, apiErr.StatusCode)
	suite.NotEmpty(view.Notice())
	suite.Equal(client.StateAuthenticated, suite.app.State())
}

func (suite *AppTestSuite) TestDelete() {
	view := suite.loggedIn("alice")

	created, err := view.Save(suite.ctx, "", client.TodoInput{Title: "Temp", Description: "x"})
	suite.Require().NoError(err)
	suite.Len(view.Todos(), 1)

	suite.Require().NoError(view.Delete(suite.ctx, created.TodoID))
	suite.Empty(view.Todos())

	_, err = suite.app.Client().GetTodo(suite.ctx, created.TodoID)
	suite.True(client.IsNotFound(err))
}

func TestAppTestSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func TestFileSessionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	store := client.NewFileSessionStore(path)

	s, err := store.Load()
	require.NoError(t, err)
	assert.False(t, s.Valid())

	require.NoError(t, store.Save(client.Session{Token: "tok", UserID: "u-1"}))

	s, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, client.Session{Token: "tok", UserID: "u-1"}, s)

	session, err := client.NewSessionContext(store)
	require.NoError(t, err)
	current, ok := session.Current()
	assert.True(t, ok)
	assert.Equal(t, "u-1", current.UserID)

	require.NoError(t, session.End())
	require.NoError(t, store.Clear())

	s, err = store.Load()
	require.NoError(t, err)
	assert.False(t, s.Valid())
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	session, err := client.NewSessionContext(&client.MemorySessionStore{})
	require.NoError(t, err)

	_, err = client.NewClient("localhost:8080", session, nil)
	assert.Error(t, err)
}
