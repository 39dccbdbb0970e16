package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"costwise/internal/handlers"
	"costwise/internal/logger"
	"costwise/internal/middleware"
	"costwise/internal/models"
	"costwise/internal/services"
	"costwise/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Organization{},
		&models.OrganizationUser{},
		&models.Shop{},
		&models.Category{},
		&models.CostItem{},
		&models.CostEntry{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	auditService := services.NewAuditService(db)
	userService := services.NewUserService(db, auditService)
	orgService := services.NewOrganizationService(db, auditService)
	shopService := services.NewShopService(db, auditService)
	categoryService := services.NewCategoryService(db, auditService)
	entryService := services.NewEntryService(db, shopService, auditService)
	statsService := services.NewStatisticsService(db, shopService)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, orgService)
	orgHandler := handlers.NewOrganizationHandler(orgService, userService)
	shopHandler := handlers.NewShopHandler(shopService, orgService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, orgService)
	entryHandler := handlers.NewEntryHandler(entryService)
	statsHandler := handlers.NewStatisticsHandler(statsService)
	auditHandler := handlers.NewAuditHandler(auditService)
	userHandler := handlers.NewUserHandler(userService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)
	auth.POST("/status", authHandler.AccountStatus)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/auth/logout", authHandler.Logout)

	orgs := protected.Group("/organizations")
	orgs.POST("", orgHandler.Create)
	orgs.GET("", orgHandler.ListMine)
	orgs.GET("/current", orgHandler.GetCurrent)
	orgs.POST("/switch", orgHandler.Switch)
	orgs.GET("/members", orgHandler.ListMembers)
	orgs.POST("/members", orgHandler.Invite)
	orgs.PUT("/members/:id", orgHandler.UpdateMemberRole)
	orgs.DELETE("/members/:id", orgHandler.RemoveMember)

	shops := protected.Group("/shops")
	shops.GET("", shopHandler.List)
	shops.POST("", shopHandler.Create)
	shops.PUT("/reorder", shopHandler.Reorder)
	shops.GET("/:id", shopHandler.Get)
	shops.PUT("/:id", shopHandler.Update)
	shops.DELETE("/:id", shopHandler.Delete)

	categories := protected.Group("/categories")
	categories.GET("", categoryHandler.List)
	categories.POST("", categoryHandler.Create)
	categories.GET("/:id", categoryHandler.Get)
	categories.PUT("/:id", categoryHandler.Update)
	categories.DELETE("/:id", categoryHandler.Delete)
	categories.POST("/:id/items", categoryHandler.CreateItem)

	items := protected.Group("/items")
	items.PUT("/:id", categoryHandler.UpdateItem)
	items.DELETE("/:id", categoryHandler.DeleteItem)

	entries := protected.Group("/entries")
	entries.GET("", entryHandler.List)
	entries.POST("", entryHandler.Upsert)
	entries.POST("/bulk", entryHandler.BulkUpsert)

	statistics := protected.Group("/statistics")
	statistics.GET("", statsHandler.Get)
	statistics.GET("/categories", statsHandler.Categories)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Create)
	admin.PUT("/users/:id", userHandler.Update)
	admin.PUT("/users/:id/password", userHandler.ResetPassword)
	admin.DELETE("/users/:id", userHandler.Delete)
	admin.GET("/audit", auditHandler.List)
	admin.GET("/audit/stats", auditHandler.Stats)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken string, userID float64) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"name":"Test User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(float64)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// setupOwner registers a user, creates an organization and switches into it.
// Returns a token bound to the organization and the organization ID.
func (app *testApp) setupOwner(t *testing.T, email, orgName string) (token string, orgID float64) {
	t.Helper()
	accessToken, _, _ := app.registerUser(t, email, "password123")

	rec := app.request("POST", "/api/v1/organizations", fmt.Sprintf(`{"name":%q}`, orgName), accessToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create organization failed: %d %s", rec.Code, rec.Body.String())
	}
	org := parseJSON(t, rec)["organization"].(map[string]interface{})
	orgID = org["id"].(float64)

	rec = app.request("POST", "/api/v1/organizations/switch",
		fmt.Sprintf(`{"organization_id":%d}`, int(orgID)), accessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("switch organization failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["access_token"].(string), orgID
}

// makeAdmin promotes a user to the platform ADMIN role directly in the
// database and returns a fresh token from login.
func (app *testApp) makeAdmin(t *testing.T, email, password string) string {
	t.Helper()
	if err := app.DB.Model(&models.User{}).Where("email = ?", email).Update("role", models.RoleAdmin).Error; err != nil {
		t.Fatalf("failed to promote user: %v", err)
	}
	token, _ := app.loginUser(t, email, password)
	return token
}
