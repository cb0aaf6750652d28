package test

import (
	"log"
	"os"
	"testing"
	"time"

	"salary_portal/config"
	"salary_portal/handlers"
	"salary_portal/models"
	"salary_portal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	testApp *fiber.App
	testDB  *gorm.DB
)

func init() {
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-secret")
	}
	config.LoadConfig()
	utils.InitLogger()

	var err error
	// Shared in-memory SQLite so every connection sees the same data
	testDB, err = gorm.Open(sqlite.Open("file:apitest?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to test database:", err)
	}

	err = testDB.AutoMigrate(
		&models.User{},
		&models.SalaryRecord{},
		&models.SalaryHistory{},
		&models.CommissionPolicy{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatal("Failed to migrate test database:", err)
	}

	handlers.InitHandlers(testDB)
	testApp = fiber.New()
}

func SetupTest(t *testing.T) (*fiber.App, *gorm.DB) {
	ResetTestDB()

	testApp = fiber.New()
	handlers.InitHandlers(testDB)

	return testApp, testDB
}

func ResetTestDB() {
	testDB.Exec("DELETE FROM salary_histories")
	testDB.Exec("DELETE FROM salary_records")
	testDB.Exec("DELETE FROM audit_logs")
	testDB.Exec("DELETE FROM commission_policies")
	testDB.Exec("DELETE FROM users")
}

// Helper function to create test JWT token
func createTestToken(userID uint, role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		log.Printf("Error creating test token: %v", err)
		return ""
	}
	return tokenString
}
