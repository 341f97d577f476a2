package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/certolo/certolo-backend/config"
	"github.com/certolo/certolo-backend/internal/app/controller"
	"github.com/certolo/certolo-backend/internal/app/repository"
	"github.com/certolo/certolo-backend/internal/app/service"
	"github.com/certolo/certolo-backend/internal/db"
	"github.com/certolo/certolo-backend/internal/middleware"
	"github.com/certolo/certolo-backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memoryStore is an in-memory stand-in for the Redis session store and
// token blacklist.
type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (m *memoryStore) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[key]; exists {
		return false, nil
	}
	m.values[key] = value
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryStore) Blacklist(_ context.Context, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values["blacklist:"+token] = "revoked"
	return nil
}

func (m *memoryStore) IsBlacklisted(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values["blacklist:"+token]
	return ok, nil
}

type TestServer struct {
	Router *gin.Engine
	DB     *gorm.DB
}

func setupIntegrationTest(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	files, err := storage.NewLocalStorage(&config.UploadConfig{
		Root:              t.TempDir(),
		MaxSize:           1 << 20,
		AllowedExtensions: []string{"pdf", "png"},
	})
	require.NoError(t, err)

	store := newMemoryStore()

	userRepo := repository.NewUserRepository(testDB)
	standardRepo := repository.NewStandardRepository(testDB)
	applicationRepo := repository.NewApplicationRepository(testDB)
	certificateRepo := repository.NewCertificateRepository(testDB)
	activityRepo := repository.NewActivityLogRepository(testDB)
	attemptRepo := repository.NewLoginAttemptRepository(testDB)

	authService := service.NewAuthService(
		userRepo,
		attemptRepo,
		store,
		"test-secret",
		15*time.Minute,
		7*24*time.Hour,
		5,
		15*time.Minute,
		4,
	)
	sessionService := service.NewSessionService(store, time.Hour)
	standardService := service.NewStandardService(standardRepo, activityRepo)
	applicationService := service.NewApplicationService(applicationRepo, standardRepo, userRepo, files, testDB)
	certificateService := service.NewCertificateService(certificateRepo, activityRepo)
	customerService := service.NewCustomerService(testDB)

	authController := controller.NewAuthController(authService, sessionService)
	standardController := controller.NewStandardController(standardService, files)
	applicationController := controller.NewApplicationController(applicationService, files)
	certificateController := controller.NewCertificateController(certificateService)
	customerController := controller.NewCustomerController(customerService)

	authMiddleware := middleware.NewAuthMiddleware("test-secret")
	csrf := middleware.CSRFMiddleware(sessionService)

	router := gin.New()

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.Refresh)
		auth.GET("/csrf", authMiddleware.Authenticate(), authController.GetCSRFToken)
		auth.GET("/me", authMiddleware.Authenticate(), authController.GetMe)
	}

	standards := router.Group("/api/v1/standards")
	{
		standards.GET("", authMiddleware.OptionalAuthenticate(), standardController.ListStandards)
		standards.GET("/:id", authMiddleware.OptionalAuthenticate(), standardController.GetStandard)

		certifierOnly := standards.Group("",
			authMiddleware.Authenticate(),
			authMiddleware.RequireRole("certifier"),
			csrf,
		)
		{
			certifierOnly.POST("", standardController.CreateStandard)
			certifierOnly.POST("/:id/criteria", standardController.AddCriterion)
		}
	}

	applications := router.Group("/api/v1/applications", authMiddleware.Authenticate(), csrf)
	{
		applications.GET("", applicationController.ListApplications)
		applications.GET("/:id", applicationController.GetApplication)

		applicantOnly := applications.Group("", authMiddleware.RequireRole("applicant"))
		{
			applicantOnly.POST("", applicationController.CreateApplication)
			applicantOnly.PUT("/:id/responses", applicationController.SaveResponse)
			applicantOnly.POST("/:id/documents", applicationController.UploadDocument)
			applicantOnly.POST("/:id/submit", applicationController.Submit)
		}

		certifierOnly := applications.Group("", authMiddleware.RequireRole("certifier"))
		{
			certifierOnly.POST("/:id/review", applicationController.StartReview)
			certifierOnly.POST("/:id/approve", applicationController.Approve)
			certifierOnly.POST("/:id/issue", applicationController.Issue)
		}
	}

	certificates := router.Group("/api/v1/certificates")
	{
		certificates.GET("/verify/:number", certificateController.VerifyCertificate)
		certificates.GET("", authMiddleware.Authenticate(), certificateController.ListCertificates)
	}

	customers := router.Group("/api/v1/customers",
		authMiddleware.Authenticate(),
		authMiddleware.RequireRole("certifier"),
	)
	{
		customers.GET("", customerController.ListCustomers)
	}

	return &TestServer{Router: router, DB: testDB}
}

type testAccount struct {
	token string
	csrf  string
}

func (ts *TestServer) doJSON(t *testing.T, method, path string, account *testAccount, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if account != nil {
		req.Header.Set("Authorization", "Bearer "+account.token)
		if account.csrf != "" {
			req.Header.Set(middleware.CSRFHeader, account.csrf)
		}
	}

	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func (ts *TestServer) register(t *testing.T, role, email string) *testAccount {
	t.Helper()

	w := ts.doJSON(t, "POST", "/api/v1/auth/register", nil, gin.H{
		"role":           role,
		"company_name":   "Company " + email,
		"contact_person": "Contact Person",
		"email":          email,
		"password":       "password123",
		"country":        "Germany",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var response struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	account := &testAccount{token: response.Tokens.AccessToken}

	// Fetch the anti-forgery token for mutating calls.
	w = ts.doJSON(t, "GET", "/api/v1/auth/csrf", account, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var csrfResponse struct {
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &csrfResponse))
	account.csrf = csrfResponse.CSRFToken

	return account
}

func decodeID(t *testing.T, w *httptest.ResponseRecorder, key string) uint {
	t.Helper()
	var response map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	var record struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(response[key], &record))
	require.NotZero(t, record.ID)
	return record.ID
}

func TestCertificationLifecycle(t *testing.T) {
	ts := setupIntegrationTest(t)

	certifier := ts.register(t, "certifier", "certifier@example.com")
	applicant := ts.register(t, "applicant", "applicant@example.com")

	// Certifier publishes a standard with two criteria.
	w := ts.doJSON(t, "POST", "/api/v1/standards", certifier, gin.H{
		"name":            "Organic Textile",
		"code":            "OT-100",
		"validity_months": 24,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	standardID := decodeID(t, w, "standard")

	criterionIDs := make([]uint, 0, 2)
	for _, name := range []string{"Fiber sourcing", "Chemical use"} {
		w = ts.doJSON(t, "POST", fmt.Sprintf("/api/v1/standards/%d/criteria", standardID), certifier, gin.H{
			"name": name,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		criterionIDs = append(criterionIDs, decodeID(t, w, "criterion"))
	}

	// The catalog is public.
	w = ts.doJSON(t, "GET", "/api/v1/standards", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Organic Textile")

	// Applicant opens an application.
	w = ts.doJSON(t, "POST", "/api/v1/applications", applicant, gin.H{
		"standard_id": standardID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	applicationID := decodeID(t, w, "application")
	assert.Contains(t, w.Body.String(), "APP-")

	// A second create returns the existing application instead of a new one.
	w = ts.doJSON(t, "POST", "/api/v1/applications", applicant, gin.H{
		"standard_id": standardID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "APPLICATION_ALREADY_EXISTS")

	// Submission is blocked until every criterion has an answer.
	w = ts.doJSON(t, "POST", fmt.Sprintf("/api/v1/applications/%d/submit", applicationID), applicant, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "APPLICATION_INCOMPLETE_CRITERIA")

	for _, criterionID := range criterionIDs {
		w = ts.doJSON(t, "PUT", fmt.Sprintf("/api/v1/applications/%d/responses", applicationID), applicant, gin.H{
			"criterion_id":      criterionID,
			"meets_requirement": "yes",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// Upload a supporting document.
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "evidence.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 minimal evidence"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/applications/%d/documents", applicationID), &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+applicant.token)
	req.Header.Set(middleware.CSRFHeader, applicant.csrf)
	recorder := httptest.NewRecorder()
	ts.Router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	// Submit and walk the review chain.
	w = ts.doJSON(t, "POST", fmt.Sprintf("/api/v1/applications/%d/submit", applicationID), applicant, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The applicant cannot review their own application.
	w = ts.doJSON(t, "POST", fmt.Sprintf("/api/v1/applications/%d/review", applicationID), applicant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.doJSON(t, "POST", fmt.Sprintf("/api/v1/applications/%d/review", applicationID), certifier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = ts.doJSON(t, "POST", fmt.Sprintf("/api/v1/applications/%d/approve", applicationID), certifier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.doJSON(t, "POST", fmt.Sprintf("/api/v1/applications/%d/issue", applicationID), certifier, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var issued struct {
		Certificate struct {
			CertificateNumber string `json:"certificate_number"`
		} `json:"certificate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
	require.NotEmpty(t, issued.Certificate.CertificateNumber)

	// Anyone can verify the certificate without logging in.
	w = ts.doJSON(t, "GET", "/api/v1/certificates/verify/"+issued.Certificate.CertificateNumber, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"active"`)

	// Unknown numbers come back as not found.
	w = ts.doJSON(t, "GET", "/api/v1/certificates/verify/CERT-2026-9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Both sides see the certificate in their lists.
	for _, account := range []*testAccount{applicant, certifier} {
		w = ts.doJSON(t, "GET", "/api/v1/certificates", account, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), issued.Certificate.CertificateNumber)
	}

	// The applicant shows up in the certifier's customer list.
	w = ts.doJSON(t, "GET", "/api/v1/customers", certifier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "applicant@example.com")
}

func TestCSRFProtectionOnMutatingRoutes(t *testing.T) {
	ts := setupIntegrationTest(t)

	certifier := ts.register(t, "certifier", "certifier@example.com")

	// Without the anti-forgery token the mutation is rejected.
	bare := &testAccount{token: certifier.token}
	w := ts.doJSON(t, "POST", "/api/v1/standards", bare, gin.H{
		"name": "Forged Standard",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_CSRF_INVALID")

	// With it the same request goes through.
	w = ts.doJSON(t, "POST", "/api/v1/standards", certifier, gin.H{
		"name": "Real Standard",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRoleBoundaries(t *testing.T) {
	ts := setupIntegrationTest(t)

	applicant := ts.register(t, "applicant", "applicant@example.com")
	certifier := ts.register(t, "certifier", "certifier@example.com")

	// Applicants cannot create standards.
	w := ts.doJSON(t, "POST", "/api/v1/standards", applicant, gin.H{
		"name": "Applicant Standard",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Certifiers cannot open applications.
	w = ts.doJSON(t, "POST", "/api/v1/standards", certifier, gin.H{
		"name": "Carbon Neutral",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	standardID := decodeID(t, w, "standard")

	w = ts.doJSON(t, "POST", "/api/v1/applications", certifier, gin.H{
		"standard_id": standardID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Applicants have no customer list.
	w = ts.doJSON(t, "GET", "/api/v1/customers", applicant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
