package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/seand52/socialDev/internal/auth"
	"github.com/seand52/socialDev/internal/filter"
	"github.com/seand52/socialDev/internal/model"
	"github.com/seand52/socialDev/internal/repository"
	"github.com/seand52/socialDev/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	echo   *echo.Echo
	tokens *auth.TokenManager

	users         *service.MockUserRepository
	projects      *service.MockProjectRepository
	saved         *service.MockSavedProjectRepository
	conversations *service.MockConversationRepository
}

func newTestServer(t *testing.T, configure func(*Handler)) *testServer {
	t.Helper()

	s := &testServer{
		echo:          echo.New(),
		tokens:        auth.NewTokenManager("test-secret", time.Hour),
		users:         new(service.MockUserRepository),
		projects:      new(service.MockProjectRepository),
		saved:         new(service.MockSavedProjectRepository),
		conversations: new(service.MockConversationRepository),
	}

	tx := new(service.MockTransactor)
	h := NewHandler(zap.NewNop()).
		WithTokenVerifier(s.tokens).
		WithUserService(service.NewUserService(tx).
			WithUserRepo(s.users).
			WithSavedProjectRepo(s.saved).
			WithTokenIssuer(s.tokens)).
		WithProjectService(service.NewProjectService(tx).
			WithUserRepo(s.users).
			WithProjectRepo(s.projects).
			WithSavedProjectRepo(s.saved)).
		WithMessageService(service.NewMessageService(tx).
			WithUserRepo(s.users).
			WithConversationRepo(s.conversations))
	if configure != nil {
		configure(h)
	}
	h.RegisterRoutes(s.echo)

	return s
}

func (s *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.tokens.GenerateToken(userID)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *service.Error  `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandler_TransportError(t *testing.T) {
	tests := []struct {
		code   service.ErrorCode
		status int
	}{
		{service.ErrorCodeInvalidBody, http.StatusBadRequest},
		{service.ErrorCodeInvalidQuery, http.StatusBadRequest},
		{service.ErrorCodeAuthFailed, http.StatusUnauthorized},
		{service.ErrorCodeForbidden, http.StatusForbidden},
		{service.ErrorCodeNotFound, http.StatusNotFound},
		{service.ErrorCodeAlreadyExists, http.StatusConflict},
		{service.ErrorCodeProjectFull, http.StatusConflict},
		{service.ErrorCodeNotPending, http.StatusConflict},
		{service.ErrorCodeNotCollaborator, http.StatusConflict},
		{service.ErrorCodeUnspecified, http.StatusInternalServerError},
	}

	h := NewHandler(zap.NewNop())
	e := echo.New()

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, h.transportError(c, service.NewServiceError(tt.code, "boom")))

			assert.Equal(t, tt.status, rec.Code)
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, "boom", env.Error.Message)
		})
	}
}

func TestHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMocks func(*service.MockUserRepository)
		status     int
		errorCode  service.ErrorCode
	}{
		{
			name: "success",
			body: `{"name":"John","email":"john@example.com","username":"john","password":"secret"}`,
			setupMocks: func(ur *service.MockUserRepository) {
				ur.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			status: http.StatusCreated,
		},
		{
			name:       "invalid email",
			body:       `{"name":"John","email":"not-an-email","username":"john","password":"secret"}`,
			setupMocks: func(ur *service.MockUserRepository) {},
			status:     http.StatusBadRequest,
			errorCode:  service.ErrorCodeInvalidBody,
		},
		{
			name:       "malformed body",
			body:       `{"name":`,
			setupMocks: func(ur *service.MockUserRepository) {},
			status:     http.StatusBadRequest,
			errorCode:  service.ErrorCodeInvalidBody,
		},
		{
			name: "username taken",
			body: `{"name":"John","email":"john@example.com","username":"john","password":"secret"}`,
			setupMocks: func(ur *service.MockUserRepository) {
				ur.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists)
			},
			status:    http.StatusConflict,
			errorCode: service.ErrorCodeAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			tt.setupMocks(s.users)

			rec := s.do(t, http.MethodPost, "/users", "", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			env := decode(t, rec)
			if tt.errorCode != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.errorCode, env.Error.Code)
				return
			}

			var user model.User
			require.NoError(t, json.Unmarshal(env.Data, &user))
			assert.Equal(t, "john", user.Username)
			assert.NotEmpty(t, user.ID)
			s.users.AssertExpectations(t)
		})
	}
}

func TestHandler_Authorization(t *testing.T) {
	viewer := uuid.NewString()
	other := uuid.NewString()

	tests := []struct {
		name      string
		target    string
		tokenFor  string
		rawToken  string
		status    int
		errorCode service.ErrorCode
	}{
		{
			name:      "missing token",
			target:    "/users/" + viewer + "/saved",
			status:    http.StatusUnauthorized,
			errorCode: service.ErrorCodeAuthFailed,
		},
		{
			name:      "garbage token",
			target:    "/users/" + viewer + "/saved",
			rawToken:  "not-a-jwt",
			status:    http.StatusUnauthorized,
			errorCode: service.ErrorCodeAuthFailed,
		},
		{
			name:      "token of another user",
			target:    "/users/" + viewer + "/saved",
			tokenFor:  other,
			status:    http.StatusForbidden,
			errorCode: service.ErrorCodeForbidden,
		},
		{
			name:      "malformed user id",
			target:    "/users/not-a-uuid/saved",
			tokenFor:  viewer,
			status:    http.StatusBadRequest,
			errorCode: service.ErrorCodeInvalidBody,
		},
		{
			name:      "malformed project id",
			target:    "/users/" + viewer + "/project/not-a-uuid",
			tokenFor:  viewer,
			status:    http.StatusBadRequest,
			errorCode: service.ErrorCodeInvalidBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)

			token := tt.rawToken
			if tt.tokenFor != "" {
				token = s.token(t, tt.tokenFor)
			}

			rec := s.do(t, http.MethodGet, tt.target, token, "")

			assert.Equal(t, tt.status, rec.Code)
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.errorCode, env.Error.Code)
			s.saved.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_RetrieveUserOfAnotherUser(t *testing.T) {
	s := newTestServer(t, nil)
	viewer := uuid.NewString()
	other := uuid.NewString()

	s.users.On("Get", mock.Anything, other).Return(&repository.User{
		ID:       other,
		Name:     "Jane",
		Username: "jane",
	}, nil)

	rec := s.do(t, http.MethodGet, "/users/"+other, s.token(t, viewer), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var user model.User
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &user))
	assert.Equal(t, "jane", user.Username)
}

func TestHandler_FilterProjects(t *testing.T) {
	viewer := uuid.NewString()
	projects := []*repository.Project{
		{ID: "p1", Name: "React-starter", Skills: []string{"react", "javascript"}, Location: "Barcelona", OwnerID: "o"},
		{ID: "p2", Name: "reach", Skills: []string{"react", "javascript", "node"}, Location: "Barcelona", OwnerID: "o"},
	}

	reactInBarcelona := mock.MatchedBy(func(q *filter.Query) bool {
		return q.Name == nil &&
			assert.ObjectsAreEqual([]string{"react", "javascript"}, q.Skills) &&
			q.Location != nil && q.Location.Literal() == "Barcelona"
	})

	tests := []struct {
		name       string
		target     string
		setupMocks func(*testServer)
		status     int
		errorCode  service.ErrorCode
		ids        []string
	}{
		{
			name:   "path form",
			target: "/users/" + viewer + "/projects/filter/q=&f=react+javascript&c=Barcelona",
			setupMocks: func(s *testServer) {
				s.users.On("Get", mock.Anything, viewer).Return(&repository.User{ID: viewer}, nil)
				s.saved.On("List", mock.Anything, viewer).Return([]string{"p2"}, nil)
				s.projects.On("Find", mock.Anything, reactInBarcelona).Return(projects, nil)
			},
			status: http.StatusOK,
			ids:    []string{"p1", "p2"},
		},
		{
			name:   "query form",
			target: "/users/" + viewer + "/projects/filter?q=&f=react+javascript&c=Barcelona",
			setupMocks: func(s *testServer) {
				s.users.On("Get", mock.Anything, viewer).Return(&repository.User{ID: viewer}, nil)
				s.saved.On("List", mock.Anything, viewer).Return([]string{"p2"}, nil)
				s.projects.On("Find", mock.Anything, reactInBarcelona).Return(projects, nil)
			},
			status: http.StatusOK,
			ids:    []string{"p1", "p2"},
		},
		{
			name:   "no matches",
			target: "/users/" + viewer + "/projects/filter?q=zzz&f=&c=",
			setupMocks: func(s *testServer) {
				s.users.On("Get", mock.Anything, viewer).Return(&repository.User{ID: viewer}, nil)
				s.saved.On("List", mock.Anything, viewer).Return(nil, nil)
				s.projects.On("Find", mock.Anything, mock.Anything).Return(nil, nil)
			},
			status: http.StatusOK,
			ids:    []string{},
		},
		{
			name:   "escaped percent in path form",
			target: "/users/" + viewer + "/projects/filter/q=100%25&f=c%2B%2B&c=",
			setupMocks: func(s *testServer) {
				s.users.On("Get", mock.Anything, viewer).Return(&repository.User{ID: viewer}, nil)
				s.saved.On("List", mock.Anything, viewer).Return(nil, nil)
				s.projects.On("Find", mock.Anything, mock.MatchedBy(func(q *filter.Query) bool {
					return q.Name != nil && q.Name.Literal() == "100%" &&
						assert.ObjectsAreEqual([]string{"c++"}, q.Skills) &&
						q.Location == nil
				})).Return(projects[:1], nil)
			},
			status: http.StatusOK,
			ids:    []string{"p1"},
		},
		{
			name:   "escaped percent and space in path form",
			target: "/users/" + viewer + "/projects/filter/q=50%25%20off&f=&c=S%C3%A3o",
			setupMocks: func(s *testServer) {
				s.users.On("Get", mock.Anything, viewer).Return(&repository.User{ID: viewer}, nil)
				s.saved.On("List", mock.Anything, viewer).Return(nil, nil)
				s.projects.On("Find", mock.Anything, mock.MatchedBy(func(q *filter.Query) bool {
					return q.Name != nil && q.Name.Literal() == "50% off" &&
						q.Location != nil && q.Location.Literal() == "São"
				})).Return(nil, nil)
			},
			status: http.StatusOK,
			ids:    []string{},
		},
		{
			name:       "malformed query",
			target:     "/users/" + viewer + "/projects/filter/garbage",
			setupMocks: func(s *testServer) {},
			status:     http.StatusBadRequest,
			errorCode:  service.ErrorCodeInvalidQuery,
		},
		{
			name:   "unknown viewer",
			target: "/users/" + viewer + "/projects/filter?q=&f=&c=",
			setupMocks: func(s *testServer) {
				s.users.On("Get", mock.Anything, viewer).Return(nil, repository.ErrNotFound)
			},
			status:    http.StatusNotFound,
			errorCode: service.ErrorCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			tt.setupMocks(s)

			rec := s.do(t, http.MethodGet, tt.target, s.token(t, viewer), "")

			assert.Equal(t, tt.status, rec.Code)
			env := decode(t, rec)
			if tt.errorCode != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.errorCode, env.Error.Code)
				s.projects.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
				return
			}

			var views []*model.ProjectView
			require.NoError(t, json.Unmarshal(env.Data, &views))
			ids := make([]string, 0, len(views))
			for _, v := range views {
				ids = append(ids, v.ID)
			}
			assert.ElementsMatch(t, tt.ids, ids)
			s.projects.AssertExpectations(t)
		})
	}
}

func TestHandler_UnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	viewer := uuid.NewString()

	tests := []struct {
		name   string
		method string
		target string
		token  string
	}{
		{name: "anonymous", method: http.MethodGet, target: "/nope"},
		{name: "authenticated", method: http.MethodGet, target: "/nope", token: s.token(t, viewer)},
		{name: "under a user", method: http.MethodGet, target: "/users/" + viewer + "/nope", token: s.token(t, viewer)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.target, tt.token, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestHandler_HandleCollaborationRejectsUnknownDecision(t *testing.T) {
	s := newTestServer(t, nil)
	owner := uuid.NewString()

	body := `{"collaboratorId":"` + uuid.NewString() + `","decision":"maybe"}`
	rec := s.do(t, http.MethodPatch, "/users/"+owner+"/projects/"+uuid.NewString()+"/collaborator", s.token(t, owner), body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, service.ErrorCodeInvalidBody, env.Error.Code)
	s.projects.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestHandler_FindConversationWithoutHistory(t *testing.T) {
	s := newTestServer(t, nil)
	userID := uuid.NewString()
	otherID := uuid.NewString()

	s.conversations.On("FindByMembers", mock.Anything, userID, otherID).Return(nil, repository.ErrNotFound)

	rec := s.do(t, http.MethodGet, "/users/"+userID+"/chat/"+otherID, s.token(t, userID), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())
}

func TestHandler_AuthRateLimit(t *testing.T) {
	s := newTestServer(t, func(h *Handler) {
		h.WithAuthRateLimit(0.001, 1)
	})

	first := s.do(t, http.MethodPost, "/auth", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := s.do(t, http.MethodPost, "/auth", "", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestHandler_Metrics(t *testing.T) {
	s := newTestServer(t, func(h *Handler) {
		h.WithMetrics(NewMetrics())
	})

	s.do(t, http.MethodPost, "/users", "", `{}`)

	rec := s.do(t, http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `socialdev_http_requests_total{method="POST",route="/users",status="400"} 1`)
}

func TestHandler_Health(t *testing.T) {
	tests := []struct {
		name   string
		ping   PingFunc
		status int
	}{
		{
			name:   "all checks pass",
			ping:   func(context.Context) error { return nil },
			status: http.StatusOK,
		},
		{
			name:   "postgres down",
			ping:   func(context.Context) error { return errors.New("connection refused") },
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, err := NewHealthChecker("test", PingCheck("postgres", time.Second, tt.ping))
			require.NoError(t, err)

			s := newTestServer(t, func(h *Handler) {
				h.WithHealthChecker(checker)
			})

			rec := s.do(t, http.MethodGet, "/health", "", "")

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
