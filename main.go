package main

import (
	"log"

	"salary_portal/config"
	"salary_portal/handlers"
	"salary_portal/middleware"
	"salary_portal/models"
	"salary_portal/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func initServices() error {
	var err error
	DB, err = gorm.Open(sqlite.Open(config.AppConfig.DBPath), &gorm.Config{})
	if err != nil {
		return err
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.SalaryRecord{},
		&models.SalaryHistory{},
		&models.CommissionPolicy{},
		&models.AuditLog{},
	)
	if err != nil {
		return err
	}

	handlers.InitHandlers(DB)
	return nil
}

func main() {
	config.LoadConfig()
	utils.InitLogger()

	if err := initServices(); err != nil {
		log.Fatal("Failed to initialize services:", err)
	}

	app := fiber.New()

	app.Post("/auth/login", handlers.Login)
	app.Post("/users", handlers.RegisterUser)
	app.Get("/currencies", handlers.GetSupportedCurrencies)

	app.Post("/salaries", middleware.RequireAuth, handlers.SubmitSalary)

	admin := app.Group("/admin", middleware.RequireAdmin)
	admin.Get("/users", handlers.GetAllUsers)
	admin.Delete("/users/:id", handlers.DeleteUser)
	admin.Put("/salaries/:userId", handlers.UpdateUserSalary)
	admin.Patch("/salaries/:userId/commission", handlers.UpdateUserCommission)
	admin.Post("/salaries/bulk", handlers.BulkUpdateSalaries)
	admin.Get("/statistics", handlers.GetSalaryStatistics)
	admin.Get("/history/user/:userId", handlers.GetUserHistory)
	admin.Get("/history/actor/:actorId", handlers.GetActorHistory)

	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
