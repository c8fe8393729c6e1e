package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/strategiz-io/passkey-service/internal/app"
	"github.com/strategiz-io/passkey-service/internal/config"
	"github.com/strategiz-io/passkey-service/internal/controllers"
	"github.com/strategiz-io/passkey-service/internal/repositories"
	"github.com/strategiz-io/passkey-service/internal/services"
	"github.com/strategiz-io/passkey-service/internal/utils"
)

const corsLowSecurityAllowedOriginLocalhost = "http://localhost:3000"

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	challengeRepo := repositories.NewChallengeRepository(application.DB)
	credentialRepo := repositories.NewCredentialRepository(application.DB)
	tokenRepo := repositories.NewTokenRepository(application.DB)

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	challengeService := services.NewChallengeService(challengeRepo, cfg.ChallengeTimeout)
	sessionService := services.NewSessionService(cfg, tokenRepo)

	registrationService := services.NewRegistrationService(
		cfg,
		challengeService,
		credentialRepo,
		sessionService,
	)

	authenticationService := services.NewAuthenticationService(
		cfg,
		challengeService,
		credentialRepo,
		sessionService,
	)

	credentialService := services.NewCredentialService(credentialRepo)
	cleanupService := services.NewCleanupService(challengeRepo, tokenRepo)

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	passkeyController := controllers.NewPasskeyController(registrationService, authenticationService)
	credentialController := controllers.NewCredentialController(credentialService)
	sessionController := controllers.NewSessionController(sessionService)
	healthController := controllers.NewHealthController(application)

	//----------------------------------------------------------------------
	// Router & Endpoints
	//----------------------------------------------------------------------
	router := mux.NewRouter()

	// Health
	router.HandleFunc("/health", healthController.HealthCheckHandler).Methods("GET")

	// /auth/v1
	authRouter := router.PathPrefix("/auth").Subrouter()
	v1Router := authRouter.PathPrefix("/v1").Subrouter()

	// Passkey ceremonies
	v1Router.HandleFunc("/passkey/register/begin", passkeyController.BeginRegistration).Methods("POST")
	v1Router.HandleFunc("/passkey/register/complete", passkeyController.CompleteRegistration).Methods("POST")
	v1Router.HandleFunc("/passkey/authenticate/begin", passkeyController.BeginAuthentication).Methods("POST")
	v1Router.HandleFunc("/passkey/authenticate/complete", passkeyController.CompleteAuthentication).Methods("POST")

	// Credential management
	v1Router.HandleFunc("/users/{user_id}/credentials", credentialController.ListCredentials).Methods("GET")
	v1Router.HandleFunc("/users/{user_id}/credentials/{id}", credentialController.RevokeCredential).Methods("DELETE")

	// Sessions
	v1Router.HandleFunc("/token/refresh", sessionController.Refresh).Methods("POST")
	v1Router.HandleFunc("/logout", sessionController.Logout).Methods("POST")

	//----------------------------------------------------------------------
	// Scheduled cleanup via cron
	//----------------------------------------------------------------------
	c := cron.New()

	// Abandoned ceremonies leave expired challenges behind; sweep often.
	_, schErr1 := c.AddFunc("*/10 * * * *", func() {
		if e := cleanupService.CleanupChallenges(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled challenge cleanup failed")
		}
	})
	if schErr1 != nil {
		utils.Logger.WithError(schErr1).Fatal("Failed to schedule challenge cleanup job")
	}

	// Token cleanup
	_, schErr2 := c.AddFunc("5 3 * * *", func() {
		if e := cleanupService.CleanupTokens(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled token cleanup failed")
		}
	})
	if schErr2 != nil {
		utils.Logger.WithError(schErr2).Fatal("Failed to schedule token cleanup job")
	}

	c.Start()

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, corsLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Platform", "X-Device-ID"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("Failed to start server:", err)
	}
}
