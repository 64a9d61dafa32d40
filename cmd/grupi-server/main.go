package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/grupi/grupi-server/pkg/grupi/academics"
	"github.com/grupi/grupi-server/pkg/grupi/auth"
	"github.com/grupi/grupi-server/pkg/grupi/config"
	"github.com/grupi/grupi-server/pkg/grupi/database"
	"github.com/grupi/grupi-server/pkg/grupi/groups"
	"github.com/grupi/grupi-server/pkg/grupi/joinrequests"
	"github.com/grupi/grupi-server/pkg/grupi/mailer"
	"github.com/grupi/grupi-server/pkg/grupi/models"
	"github.com/grupi/grupi-server/pkg/grupi/otp"
	"github.com/grupi/grupi-server/pkg/grupi/profiles"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := database.Connect(cfg.DBPath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := database.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	if err := ensureReferenceData(db); err != nil {
		log.Fatalf("Failed to seed reference data: %v", err)
	}

	engine := otp.NewEngine(db, buildMailer(cfg), otp.Config{
		TTL:         cfg.OTPTTL,
		Cooldown:    cfg.OTPCooldown,
		MaxAttempts: cfg.OTPMaxAttempts,
	})

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := auth.NewHandler(db, engine, cfg)
		authHandler.RegisterRoutes(api.Group("/auth"))

		protected := api.Group("", auth.AuthMiddleware())

		// Academic reference data
		academicsHandler := academics.NewHandler(db)
		academicsHandler.RegisterRoutes(protected)

		// Profiles
		profilesHandler := profiles.NewHandler(db)
		profilesHandler.RegisterRoutes(protected)

		// Groups, membership and the caller-relative actions
		groupsHandler := groups.NewHandler(db)
		groupsGroup := protected.Group("/groups")
		groupsHandler.RegisterRoutes(groupsGroup)
		groupsHandler.RegisterMemberRoutes(groupsGroup)
		groupsHandler.RegisterSelfRoutes(protected)

		// Join requests
		requestsHandler := joinrequests.NewHandler(db)
		requestsHandler.RegisterJoinRoute(groupsGroup)
		requestsHandler.RegisterRoutes(protected.Group("/join-requests"))
	}

	log.Printf("Starting GruPI server on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildMailer picks the configured delivery backend.
func buildMailer(cfg *config.Config) mailer.Mailer {
	if cfg.MailerBackend == "sendgrid" && cfg.SendgridAPIKey != "" {
		return mailer.NewSendgridMailer(cfg.SendgridAPIKey, cfg.FromEmail, cfg.FromName)
	}
	log.Println("Using console mailer - emails are logged, not sent")
	return mailer.NewConsoleMailer(cfg.FromEmail, cfg.FromName)
}

// ensureReferenceData seeds the academic lookup tables on an empty database
// so registration has something to point at. Real deployments replace this
// with the institution's own import.
func ensureReferenceData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.District{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil // Already seeded
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for n := 1; n <= 6; n++ {
			if err := tx.Create(&models.IntegrativeProject{Number: n}).Error; err != nil {
				return err
			}
		}

		districts := []models.District{
			{Number: 1, Name: "São Paulo - Capital"},
			{Number: 2, Name: "Grande São Paulo"},
			{Number: 3, Name: "Vale do Paraíba"},
			{Number: 4, Name: "Baixada Santista"},
			{Number: 5, Name: "Sorocaba"},
			{Number: 6, Name: "Campinas"},
			{Number: 7, Name: "Ribeirão Preto"},
			{Number: 8, Name: "Bauru"},
			{Number: 9, Name: "São José do Rio Preto"},
			{Number: 10, Name: "Araçatuba"},
			{Number: 11, Name: "Presidente Prudente"},
			{Number: 12, Name: "Marília"},
			{Number: 13, Name: "Itapeva"},
			{Number: 14, Name: "Registro"},
		}
		for i := range districts {
			if err := tx.Create(&districts[i]).Error; err != nil {
				return err
			}
		}

		campuses := []models.Campus{
			{Name: "Vila Mariana", DistrictID: districts[0].ID},
			{Name: "Guarulhos", DistrictID: districts[1].ID},
			{Name: "São José dos Campos", DistrictID: districts[2].ID},
			{Name: "Santos", DistrictID: districts[3].ID},
			{Name: "Campinas Centro", DistrictID: districts[5].ID},
		}
		for i := range campuses {
			if err := tx.Create(&campuses[i]).Error; err != nil {
				return err
			}
		}

		tracks := []models.Track{
			{Name: "Computação"},
			{Name: "Licenciatura"},
			{Name: "Negócios e Produção"},
		}
		for i := range tracks {
			if err := tx.Create(&tracks[i]).Error; err != nil {
				return err
			}
		}

		courses := []models.Course{
			{Name: "Tecnologia da Informação", TrackID: tracks[0].ID},
			{Name: "Ciência de Dados", TrackID: tracks[0].ID},
			{Name: "Engenharia de Computação", TrackID: tracks[0].ID},
			{Name: "Matemática", TrackID: tracks[1].ID},
			{Name: "Pedagogia", TrackID: tracks[1].ID},
			{Name: "Administração", TrackID: tracks[2].ID},
			{Name: "Engenharia de Produção", TrackID: tracks[2].ID},
		}
		for i := range courses {
			if err := tx.Create(&courses[i]).Error; err != nil {
				return err
			}
		}

		log.Println("Seeded academic reference data")
		return nil
	})
}
