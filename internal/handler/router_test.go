package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/gatelog/internal/middleware"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/internal/repository"
	"github.com/quocanhngo/gatelog/internal/service"
	"github.com/quocanhngo/gatelog/internal/testutil"
	"github.com/quocanhngo/gatelog/internal/ws"
	"github.com/quocanhngo/gatelog/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOTP = "246810"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router     *gin.Engine
	db         *gorm.DB
	jwt        *auth.JWTManager
	mailer     *testutil.MockMailer
	recognizer *testutil.MockRecognizer
	store      *testutil.MemoryStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)

	s := &testServer{
		db:         db,
		jwt:        auth.NewJWTManager("test-secret", 90*24*time.Hour),
		mailer:     &testutil.MockMailer{},
		recognizer: &testutil.MockRecognizer{},
		store:      testutil.NewMemoryStorage(),
	}
	blacklist := testutil.NewMemoryBlacklist()

	userRepo := repository.NewUserRepository(db)
	otpService := service.NewOTPService(repository.NewOTPRepository(db), logger,
		service.WithCodeGenerator(func() (string, error) { return testOTP, nil }))
	authService := service.NewAuthService(userRepo, otpService, s.jwt, s.mailer, blacklist, logger)
	hub := ws.NewHub(nil, logger)
	entryService := service.NewEntryService(repository.NewEntryRepository(db), s.store, s.recognizer, hub, time.Hour, logger)
	accessService := service.NewAccessService(repository.NewAccessRequestRepository(db), userRepo, logger)
	contactService := service.NewContactService(s.mailer, "desk@example.com", logger)

	s.router = NewRouter(Handlers{
		Auth:          NewAuthHandler(authService, middleware.CookieOptions{}, s.jwt.Expiry(), logger),
		Entry:         NewEntryHandler(entryService, logger),
		Device:        NewDeviceHandler(entryService, logger),
		AccessRequest: NewAccessRequestHandler(accessService, logger),
		Contact:       NewContactHandler(contactService),
		WS:            NewWSHandler(hub, nil, logger),
	}, RouterConfig{
		JWT:         s.jwt,
		Blacklist:   blacklist,
		CORSOrigins: []string{"http://localhost:3000"},
		DeviceKey:   "cam-key",
		Logger:      logger,
	})
	return s
}

// loginAs returns a session token for a fresh user with role
func (s *testServer) loginAs(t *testing.T, role model.Role) string {
	t.Helper()
	user := testutil.CreateUser(t, s.db, strings.ToLower(string(role))+"@example.com", role)
	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.FullName, string(user.Role))
	require.NoError(t, err)
	return token
}

func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path, field, filename, contentType string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func TestOTPLoginFlow(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "guard@example.com", model.RoleOperator)
	s.mailer.On("SendOTP", mock.Anything, "guard@example.com", testOTP, 10).Return(nil).Once()

	rec := s.do(jsonRequest(http.MethodPost, "/user/request-otp", gin.H{"email": "nobody@example.com"}), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found. Please sign up first.")

	rec = s.do(jsonRequest(http.MethodPost, "/user/request-otp", gin.H{"email": "not-an-email"}), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(jsonRequest(http.MethodPost, "/user/request-otp", gin.H{"email": "Guard@Example.com"}), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OTP sent to your email. Valid for 10 minutes.")
	assert.NotContains(t, rec.Body.String(), testOTP)

	rec = s.do(jsonRequest(http.MethodPost, "/user/request-otp", gin.H{"email": "guard@example.com"}), "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please wait 5 minute(s) before requesting a new OTP")

	rec = s.do(jsonRequest(http.MethodPost, "/user/verify-otp", gin.H{"email": "guard@example.com", "otp": "111111"}), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	rec = s.do(jsonRequest(http.MethodPost, "/user/verify-otp", gin.H{"email": "guard@example.com", "otp": testOTP}), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, model.RoleOperator, resp.User.Role)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, resp.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 90*24*60*60, cookie.MaxAge)

	// the code is single use
	rec = s.do(jsonRequest(http.MethodPost, "/user/verify-otp", gin.H{"email": "guard@example.com", "otp": testOTP}), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/user/me", nil), resp.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "guard@example.com")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/user/logout", nil), resp.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessionCookie(rec))
	assert.Empty(t, sessionCookie(rec).Value)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/user/me", nil), resp.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.mailer.AssertExpectations(t)
}

func TestVerifyOTP_UserRemovedAfterIssue(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "leaver@example.com", model.RoleViewer)
	s.mailer.On("SendOTP", mock.Anything, "leaver@example.com", testOTP, 10).Return(nil).Once()

	rec := s.do(jsonRequest(http.MethodPost, "/user/request-otp", gin.H{"email": "leaver@example.com"}), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, s.db.Delete(user).Error)

	rec = s.do(jsonRequest(http.MethodPost, "/user/verify-otp", gin.H{"email": "leaver@example.com", "otp": testOTP}), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found")
	assert.Nil(t, sessionCookie(rec))
}

func TestEntryRoutes(t *testing.T) {
	s := newTestServer(t)
	viewer := s.loginAs(t, model.RoleViewer)
	operator := s.loginAs(t, model.RoleOperator)
	admin := s.loginAs(t, model.RoleAdmin)
	s.recognizer.On("Recognize", mock.Anything, mock.Anything).Return("KA01AB1234", nil)

	rec := s.do(multipartRequest(t, "/upload", "entry", "car.jpg", "image/jpeg", nil), viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(multipartRequest(t, "/upload", "entry", "notes.txt", "text/plain", nil), operator)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(multipartRequest(t, "/upload", "entry", "car.jpg", "image/jpeg", nil), operator)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.EntryWithURL
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "KA01AB1234", created.Number)
	assert.True(t, strings.HasPrefix(created.ImageKey, "vehicle-entries/"))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/entries", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/entries?limit=500", nil), viewer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/entries", nil), viewer)
	require.Equal(t, http.StatusOK, rec.Code)
	var list model.EntryListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.Limit)
	require.Len(t, list.Entries, 1)
	assert.NotEmpty(t, list.Entries[0].SignedURL)

	path := "/entries/" + created.ID.String()
	rec = s.do(jsonRequest(http.MethodPut, path, gin.H{"number": "KA01AB9999"}), operator)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(jsonRequest(http.MethodPut, path, gin.H{"number": "KA01AB9999"}), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "KA01AB9999")

	rec = s.do(jsonRequest(http.MethodPut, "/entries/not-a-uuid", gin.H{"number": "X"}), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodDelete, path, nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, s.store.Has(created.ImageKey))

	rec = s.do(httptest.NewRequest(http.MethodDelete, path, nil), admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeviceUpload(t *testing.T) {
	s := newTestServer(t)

	req := multipartRequest(t, "/esp32-cam/upload", "image", "cap.jpg", "application/octet-stream",
		map[string]string{"number_plate": "MH12XY0001"})
	rec := s.do(req, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = multipartRequest(t, "/esp32-cam/upload", "image", "cap.jpg", "application/octet-stream",
		map[string]string{"number_plate": "MH12XY0001"})
	req.Header.Set(middleware.DeviceKeyHeader, "cam-key")
	rec = s.do(req, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.DeviceUploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	require.NotNil(t, resp.Record)
	assert.Equal(t, "MH12XY0001", resp.Record.NumberPlate)
	assert.NotZero(t, resp.Record.Timestamp)

	req = multipartRequest(t, "/esp32-cam/upload", "image", "cap.gif", "image/gif", nil)
	req.Header.Set(middleware.DeviceKeyHeader, "cam-key")
	rec = s.do(req, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)

	t.Run("missing number plate", func(t *testing.T) {
		before := len(s.store.Objects)
		req := multipartRequest(t, "/esp32-cam/upload", "image", "cap.bmp", "image/bmp", nil)
		req.Header.Set(middleware.DeviceKeyHeader, "cam-key")
		rec := s.do(req, "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp model.DeviceUploadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		assert.Contains(t, resp.Detail, "Missing required fields")
		assert.Nil(t, resp.Record)
		assert.Len(t, s.store.Objects, before)
	})

	for _, tc := range []struct{ filename, contentType string }{
		{"cap.jpg", "image/jpg"},
		{"cap.bmp", "image/x-ms-bmp"},
	} {
		t.Run("accepts "+tc.contentType, func(t *testing.T) {
			req := multipartRequest(t, "/esp32-cam/upload", "image", tc.filename, tc.contentType,
				map[string]string{"number_plate": "AB12"})
			req.Header.Set(middleware.DeviceKeyHeader, "cam-key")
			rec := s.do(req, "")

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"number_plate":"AB12"`)
		})
	}
}

func TestAccessRequestRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.loginAs(t, model.RoleAdmin)
	body := gin.H{"fullName": "Asha Rao", "email": "asha@example.com", "purpose": "Gate 2 night shift"}

	rec := s.do(jsonRequest(http.MethodPost, "/access-request/create", body), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var ar model.AccessRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ar))

	rec = s.do(jsonRequest(http.MethodPost, "/access-request/create", body), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(jsonRequest(http.MethodPost, "/access-request/create", gin.H{"email": "x@example.com"}), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/access-request/get-all", nil), s.loginAs(t, model.RoleViewer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/access-request/get-all", nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "asha@example.com")

	rec = s.do(httptest.NewRequest(http.MethodPut, "/access-request/approve/"+ar.ID.String(), nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"VIEWER"`)

	rec = s.do(httptest.NewRequest(http.MethodPut, "/access-request/reject/"+ar.ID.String(), nil), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the approved user can now sign in
	s.mailer.On("SendOTP", mock.Anything, "asha@example.com", testOTP, 10).Return(nil).Once()
	rec = s.do(jsonRequest(http.MethodPost, "/user/request-otp", gin.H{"email": "asha@example.com"}), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateUserRoute(t *testing.T) {
	s := newTestServer(t)
	admin := s.loginAs(t, model.RoleAdmin)
	body := gin.H{"name": "Gate Keeper", "email": "keeper@example.com", "role": "OPERATOR"}

	rec := s.do(jsonRequest(http.MethodPost, "/user/create", body), admin)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(jsonRequest(http.MethodPost, "/user/create", body), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(jsonRequest(http.MethodPost, "/user/create", gin.H{"email": "x@example.com", "role": "ROOT"}), admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactRoute(t *testing.T) {
	s := newTestServer(t)
	s.mailer.On("SendContact", mock.Anything, "desk@example.com", mock.Anything).Return(nil).Once()

	rec := s.do(jsonRequest(http.MethodPost, "/contact/submit", gin.H{"name": "Ravi", "email": "ravi@example.com"}), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(jsonRequest(http.MethodPost, "/contact/submit", gin.H{
		"name": "Ravi", "email": "ravi@example.com", "message": "Camera offline",
	}), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	s.mailer.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
