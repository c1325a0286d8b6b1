// Package main runs the training portal HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/traintrack/backend/config"
	"github.com/traintrack/backend/internal/attendance"
	"github.com/traintrack/backend/internal/auth"
	"github.com/traintrack/backend/internal/chat"
	"github.com/traintrack/backend/internal/courses"
	"github.com/traintrack/backend/internal/enrollments"
	"github.com/traintrack/backend/internal/materials"
	"github.com/traintrack/backend/internal/middleware"
	"github.com/traintrack/backend/internal/models"
	"github.com/traintrack/backend/internal/polls"
	"github.com/traintrack/backend/internal/realtime"
	"github.com/traintrack/backend/internal/sessions"
	"github.com/traintrack/backend/internal/worker"
	"github.com/traintrack/backend/pkg/database"
	"github.com/traintrack/backend/pkg/queue"
	"github.com/traintrack/backend/pkg/redis"
	"github.com/traintrack/backend/pkg/response"
	"github.com/traintrack/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			MaterialsBucket:      cfg.AWS.MaterialsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	tracker := realtime.NewQuestionTracker()
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub, tracker)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Courses
	courseRepo := courses.NewRepository(pool)
	courseHandler := courses.NewHandler(courseRepo)

	// Materials (S3-backed)
	materialRepo := materials.NewRepository(pool)
	materialHandler := materials.NewHandler(materialRepo, courseRepo, s3Client, logger)

	// Enrollments
	jobQueue := queue.NewQueue(rdb.Client, logger)
	enrollmentRepo := enrollments.NewRepository(pool)
	enrollmentHandler := enrollments.NewHandler(enrollmentRepo, courseRepo, jobQueue, logger)

	// Attendance
	attendanceRepo := attendance.NewRepository(pool)
	attendanceHandler := attendance.NewHandler(attendanceRepo)

	// Training sessions
	sessionRepo := sessions.NewRepository(pool)
	sessionHandler := sessions.NewHandler(sessionRepo, jobQueue, hub, logger)

	// Chat and question history
	chatRepo := chat.NewRepository(pool)
	chatHandler := chat.NewHandler(chatRepo, logger)
	pollRepo := polls.NewRepository(pool)
	pollHandler := polls.NewHandler(pollRepo, logger)

	// Persist what flows through the hub: participant intervals, chat
	// messages, closed questions.
	hub.SetSessionLogger(realtime.SessionLogger{
		OnJoin: func(sessionID, userID uuid.UUID) {
			_ = sessionRepo.LogJoin(context.Background(), sessionID, userID)
		},
		OnLeave: func(sessionID, userID uuid.UUID) {
			_ = sessionRepo.LogLeave(context.Background(), sessionID, userID)
		},
	})
	hub.SetChatRecorder(func(msg models.ChatMessage) {
		if err := chatRepo.Save(context.Background(), &msg); err != nil {
			logger.Warn("save chat message failed", zap.Error(err))
		}
	})
	hub.SetQuestionRecorder(func(ended realtime.EndedQuestion) {
		rec := models.QuestionRecord{
			SessionID:     ended.SessionID,
			QuestionID:    ended.Question.ID,
			Title:         ended.Question.Title,
			Options:       ended.Question.Options,
			CorrectOption: ended.Question.CorrectOption,
			ResponseCount: ended.Stats.ResponseCount,
			LaunchedAt:    ended.LaunchedAt,
			EndedAt:       ended.EndedAt,
		}
		if err := pollRepo.Record(context.Background(), &rec); err != nil {
			logger.Warn("record question failed", zap.Error(err))
		}
	})

	// Background worker sharing the process: session reports and enrollment emails.
	processor := worker.NewProcessor(sessionRepo, attendanceRepo, jobQueue, logger)

	wsValidate := func(token string) (realtime.Identity, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return realtime.Identity{}, err
		}
		ident := realtime.Identity{UserID: claims.UserID, Role: claims.Role}
		if u, err := authRepo.GetByID(context.Background(), claims.UserID); err == nil && u != nil {
			ident.DisplayName = u.DisplayName()
		}
		return ident, nil
	}
	wsGate := func(sessionID uuid.UUID) bool {
		s, err := sessionRepo.GetByID(context.Background(), sessionID)
		return err == nil && s != nil && s.IsActive
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Catalog reads are public
	router.GET("/courses", courseHandler.List)
	router.GET("/courses/:id", courseHandler.GetByID)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.List)

		// Courses
		api.POST("/courses", middleware.RequirePresenter(), courseHandler.Create)
		api.PUT("/courses/:id", middleware.RequirePresenter(), courseHandler.Update)
		api.DELETE("/courses/:id", middleware.RequirePresenter(), courseHandler.Delete)

		// Course materials
		api.POST("/courses/:id/materials", middleware.RequirePresenter(), materialHandler.Upload)
		api.GET("/courses/:id/materials", materialHandler.ListByCourse)
		api.GET("/materials/:id/download-url", materialHandler.GenerateDownloadURL)
		api.DELETE("/materials/:id", middleware.RequirePresenter(), materialHandler.Delete)

		// Enrollments
		api.POST("/enrollments", enrollmentHandler.Create)
		api.GET("/enrollments/me", enrollmentHandler.ListMine)
		api.PUT("/enrollments/:id/progress", enrollmentHandler.UpdateProgress)
		api.PUT("/enrollments/:id/complete", enrollmentHandler.MarkCompleted)
		api.GET("/enrollments/stats", middleware.RequirePresenter(), enrollmentHandler.Stats)

		// Attendance
		api.POST("/attendance", middleware.RequirePresenter(), attendanceHandler.Record)
		api.GET("/attendance/course/:id", middleware.RequirePresenter(), attendanceHandler.ListByCourse)
		api.GET("/attendance/me", attendanceHandler.ListMine)

		// Training sessions
		api.GET("/training-sessions/active", sessionHandler.ListActive)
		api.GET("/training-sessions/scheduled", sessionHandler.ListScheduled)
		api.GET("/training-sessions/:id", sessionHandler.GetByID)
		api.POST("/training-sessions", middleware.RequirePresenter(), sessionHandler.Create)
		api.PUT("/training-sessions/:id", middleware.RequirePresenter(), sessionHandler.Update)
		api.POST("/training-sessions/:id/start", middleware.RequirePresenter(), sessionHandler.Start)
		api.POST("/training-sessions/:id/end", middleware.RequirePresenter(), sessionHandler.End)
		api.POST("/training-sessions/:id/join", sessionHandler.Join)
		api.GET("/training-sessions/:id/participants", middleware.RequirePresenter(), sessionHandler.ListParticipants)

		// Live session history
		api.GET("/training-sessions/:id/chat", chatHandler.ListBySession)
		api.GET("/training-sessions/:id/questions", middleware.RequirePresenter(), pollHandler.ListBySession)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, wsValidate, wsGate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go processor.Run(workerCtx)
	logger.Info("job worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
