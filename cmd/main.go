package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/caseforge/drillapi/config"
	"github.com/caseforge/drillapi/database"
	_ "github.com/caseforge/drillapi/docs" // Swagger docs - auto-generated
	"github.com/caseforge/drillapi/internal/controller/admin"
	"github.com/caseforge/drillapi/internal/controller/user"
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/caseforge/drillapi/internal/logger"
	"github.com/caseforge/drillapi/internal/metrics"
	"github.com/caseforge/drillapi/internal/middleware"
	"github.com/caseforge/drillapi/internal/model"
	"github.com/caseforge/drillapi/internal/repository"
	"github.com/caseforge/drillapi/internal/service"
)

// @title Case Interview Drill API
// @version 1.0
// @description API for timed case-interview practice drills with tolerance-based numeric scoring and AI evaluation of free-text responses.
// @contact.name API Support
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
			metrics.NewCollector,
		),

		fx.Provide(
			repository.NewDrillRepository,
			repository.NewAttemptRepository,
			repository.NewEvaluationRepository,
		),

		fx.Provide(
			service.NewGeminiEvaluator,
			service.NewAdminDrillService,
			service.NewDrillService,
			service.NewAttemptService,
		),

		fx.Provide(
			admin.NewAdminDrillController,
			user.NewDrillController,
			user.NewAttemptController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	adminDrillCtrl *admin.AdminDrillController,
	drillCtrl *user.DrillController,
	attemptCtrl *user.AttemptController,
) {
	// Development helper: mint a bearer token for a user id. Fronted by a
	// real identity provider in production.
	router.POST("/api/v1/auth/dev-token", func(c *gin.Context) {
		var req struct {
			UserID uint   `json:"user_id" binding:"required"`
			Role   string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Kind: "validation", Message: err.Error()})
			return
		}
		token, err := middleware.IssueToken(cfg, req.UserID, req.Role, 24*time.Hour)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Kind: "internal", Message: "failed to sign token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user_id": strconv.FormatUint(uint64(req.UserID), 10)})
	})

	auth := middleware.RequireAuth(cfg)

	adminAPIGroup := router.Group("/api/v1/admin", auth)
	{
		adminAPIGroup.POST("/drills", adminDrillCtrl.CreateDrill)
	}

	userAPIGroup := router.Group("/api/v1", auth)
	{
		userAPIGroup.GET("/drills", drillCtrl.ListDrills)
		userAPIGroup.GET("/drills/:drill_id", drillCtrl.GetDrill)

		userAPIGroup.POST("/drills/:drill_id/attempts", attemptCtrl.StartAttempt)
		userAPIGroup.GET("/drills/:drill_id/my-attempts", attemptCtrl.GetMyAttempts)

		userAPIGroup.GET("/attempts/:attempt_id", attemptCtrl.GetAttempt)
		userAPIGroup.GET("/attempts/:attempt_id/timer", attemptCtrl.GetTimer)
		userAPIGroup.POST("/attempts/:attempt_id/submit", attemptCtrl.SubmitAttempt)
		userAPIGroup.POST("/attempts/:attempt_id/time-up", attemptCtrl.TimeUp)
		userAPIGroup.POST("/attempts/:attempt_id/evaluate", attemptCtrl.EvaluateAttempt)
		userAPIGroup.POST("/attempts/:attempt_id/abandon", attemptCtrl.AbandonAttempt)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Drill API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.DrillTemplate{},
		&model.EvaluationCriterion{},
		&model.DrillAttempt{},
		&model.DrillEvaluation{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
