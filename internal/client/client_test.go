package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/adaptive-learning-portal/internal/models"
	"github.com/noah-isme/adaptive-learning-portal/pkg/config"
	appErrors "github.com/noah-isme/adaptive-learning-portal/pkg/errors"
	"github.com/noah-isme/adaptive-learning-portal/pkg/middleware/requestid"
)

type observerStub struct {
	mu        sync.Mutex
	endpoints []string
}

func (o *observerStub) ObserveBackendCall(endpoint string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.endpoints = append(o.endpoints, endpoint)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.BackendConfig{BaseURL: srv.URL + "/", Timeout: time.Second}, opts...)
}

func TestClientAttachesBearerTokenAndRequestID(t *testing.T) {
	var gotAuth, gotReqID, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get(requestid.HeaderKey)
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[{"id":1,"title":"Algebra","difficulty":"easy"}]`))
	})

	ctx := WithToken(context.Background(), "tok-123")
	ctx = requestid.WithValue(ctx, "req-1")
	lessons, err := c.ListLessons(ctx)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "Algebra", lessons[0].Title)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "req-1", gotReqID)
	assert.Equal(t, "/lessons/", gotPath)
}

func TestClientOmitsAuthorizationWithoutToken(t *testing.T) {
	var header []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Values("Authorization")
		_, _ = w.Write([]byte(`{"access_token":"abc"}`))
	})

	resp, err := c.Login(context.Background(), models.LoginRequest{Email: "a@b.co", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.AccessToken)
	assert.Empty(t, header)
}

func TestClientClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   *appErrors.Error
		msg    string
	}{
		{http.StatusUnauthorized, `{"detail":"Geçersiz e-posta veya şifre"}`, appErrors.ErrUnauthorized, "Geçersiz e-posta veya şifre"},
		{http.StatusForbidden, `{"detail":"teachers only"}`, appErrors.ErrForbidden, "teachers only"},
		{http.StatusNotFound, `{"detail":"Lesson not found"}`, appErrors.ErrNotFound, "Lesson not found"},
		{http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","email"],"msg":"field required"}]}`, appErrors.ErrValidation, "email: field required"},
		{http.StatusInternalServerError, `oops`, appErrors.ErrUpstream, appErrors.ErrUpstream.Message},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.GetLesson(context.Background(), 3)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.msg, appErrors.FromError(err).Message)
		})
	}
}

func TestClientNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(config.BackendConfig{BaseURL: url, Timeout: time.Second})
	_, err := c.ListLessons(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.KindNetwork, appErrors.KindOf(err))
}

func TestClientRequestShapes(t *testing.T) {
	type seen struct {
		method string
		uri    string
		body   string
	}
	var mu sync.Mutex
	var calls []seen
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, seen{r.Method, r.URL.RequestURI(), string(data)})
		mu.Unlock()
		switch {
		case strings.HasPrefix(r.URL.Path, "/auth/complete-placement/"):
			_, _ = w.Write([]byte(`{"message":"ok","new_level":3}`))
		case strings.HasPrefix(r.URL.Path, "/history/stats/"):
			_, _ = w.Write([]byte(`{"accuracy":75,"total_correct":3,"total_questions":4}`))
		case strings.HasPrefix(r.URL.Path, "/history/trend/"):
			_, _ = w.Write([]byte(`[{"day":"mon","accuracy":50}]`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
	ctx := context.Background()

	result, err := c.CompletePlacement(ctx, 12, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, result.NewLevel)

	_, err = c.SubmitAnswer(ctx, 12, models.SubmitAnswerRequest{QuestionID: 5, GivenAnswer: "B", TimeSpentSeconds: 4})
	require.NoError(t, err)

	require.NoError(t, c.DeleteLesson(ctx, models.RoleTeacher, 9))
	require.NoError(t, c.DeleteQuestion(ctx, models.RoleTeacher, 4))

	stats, err := c.Stats(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalSolved)

	trend, err := c.Trend(ctx, 12)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"day":"mon","accuracy":50}]`, string(trend))

	require.Len(t, calls, 6)
	assert.Equal(t, seen{"POST", "/auth/complete-placement/12?score=7", ""}, calls[0])
	assert.Equal(t, "POST", calls[1].method)
	assert.Equal(t, "/history/submit?user_id=12", calls[1].uri)
	var submitted map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(calls[1].body), &submitted))
	assert.Equal(t, "B", submitted["given_answer"])
	assert.EqualValues(t, 5, submitted["question_id"])
	assert.EqualValues(t, 4, submitted["time_spent_seconds"])
	assert.Equal(t, seen{"DELETE", "/lessons/9?role=teacher", ""}, calls[2])
	assert.Equal(t, seen{"DELETE", "/questions/4?role=teacher", ""}, calls[3])
}

func TestClientUploadSendsMultipartFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "notes.pdf", header.Filename)
		assert.Equal(t, "hello", string(data))
		_, _ = w.Write([]byte(`{"url":"http://127.0.0.1:8000/uploads/1_notes.pdf","filename":"1_notes.pdf"}`))
	})

	res, err := c.Upload(context.Background(), "/tmp/notes.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "1_notes.pdf", res.Filename)
}

func TestClientReportsObservations(t *testing.T) {
	obs := &observerStub{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1}`))
	}, WithObserver(obs))

	_, err := c.GetLesson(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /lessons/{id}"}, obs.endpoints)
}
