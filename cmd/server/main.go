package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/sernion/mark-backend/internal/config"
	"github.com/sernion/mark-backend/internal/database"
	"github.com/sernion/mark-backend/internal/handlers"
	"github.com/sernion/mark-backend/internal/routes"
	"github.com/sernion/mark-backend/internal/services"
	"github.com/sernion/mark-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.ConnectPostgres(cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	rdb, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	mongoClient, mongoDB, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := database.DisconnectMongo(mongoClient); err != nil {
			log.Printf("MongoDB disconnect error: %v", err)
		}
	}()

	// Stores.
	users := store.NewUsers(db)
	profiles := store.NewProfiles(db)
	resetTokens := store.NewResetTokens(db)
	projects := store.NewProjects(db)
	datasets := store.NewDatasets(db)
	annotations := store.NewAnnotations(db)
	templates := store.NewTemplates(db)
	invitations := store.NewInvitations(db)
	loginHistory := store.NewLoginHistory(mongoDB)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := loginHistory.EnsureIndexes(ctx); err != nil {
		log.Printf("Failed to ensure login_history indexes: %v", err)
	}
	cancel()

	// Services.
	tokens := services.NewRedisTokens(rdb)
	guard := services.NewAccountGuard(users)
	auditor := services.NewLoginAuditor(loginHistory)
	auth := services.NewAuth(users, profiles, guard, tokens, auditor)
	reset := services.NewPasswordReset(resetTokens)

	var mailer services.Mailer
	if cfg.SMTPConfigured() {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	} else {
		log.Println("SMTP not configured, email will be logged instead of sent")
		mailer = services.LogMailer{}
	}

	var uploads *services.Uploads
	if cfg.CloudinaryName != "" {
		uploads, err = services.NewUploads(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Cloudinary unavailable, avatar uploads disabled: %v", err)
		}
	} else {
		log.Println("Cloudinary not configured, avatar uploads disabled")
	}

	invitationSvc := services.NewInvitations(invitations, projects, mailer, cfg.FrontendURL)

	// Handlers.
	deps := routes.Deps{
		Auth:        handlers.NewAuthHandler(auth, reset, tokens, users, mailer, cfg.FrontendURL),
		Profile:     handlers.NewProfileHandler(users, profiles, tokens, uploads),
		Users:       handlers.NewUserHandler(users, loginHistory),
		Projects:    handlers.NewProjectHandler(projects),
		Datasets:    handlers.NewDatasetHandler(datasets, projects),
		Annotations: handlers.NewAnnotationHandler(annotations, datasets, projects),
		Templates:   handlers.NewTemplateHandler(templates, projects),
		Invitations: handlers.NewInvitationHandler(invitationSvc, projects),

		Tokens:     tokens,
		UserLoader: users,
		Redis:      rdb,

		AllowedOrigins: cfg.AllowedOrigins,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes.New(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Server starting on port %s (%s)", cfg.Port, cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
