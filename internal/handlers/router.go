package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/services"
	"github.com/SAP-F-2025/exam-engine/internal/utils"
	"github.com/SAP-F-2025/exam-engine/internal/validator"
)

type HandlerManager struct {
	attemptHandler *AttemptHandler
	resultHandler  *ResultHandler
	examHandler    *ExamHandler
	healthHandler  *HealthHandler
	authMiddleware *AuthMiddleware
}

type HandlerConfig struct {
	Authenticator Authenticator
	DB            Pinger
	RedisClient   *redis.Client
	Version       string
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	config HandlerConfig,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), logger),
		resultHandler:  NewResultHandler(serviceManager.Result(), validator, logger),
		examHandler:    NewExamHandler(serviceManager.Exam(), validator, logger),
		healthHandler:  NewHealthHandler(config.DB, config.RedisClient, config.Version),
		authMiddleware: NewAuthMiddleware(config.Authenticator),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthHandler.Health)

	staff := hm.authMiddleware.RequireRole(models.RoleTeacher)
	student := hm.authMiddleware.RequireRole(models.RoleStudent)
	admin := hm.authMiddleware.RequireRole(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.Authenticate())
	{
		exams := v1.Group("/exams")
		{
			// Exam definition - Teachers and Admins only
			exams.POST("", staff, hm.examHandler.CreateExam)
			exams.GET("/:id", staff, hm.examHandler.GetExam)
			exams.PUT("/:id/questions", staff, hm.examHandler.SetQuestions)
			exams.PUT("/:id/roster", staff, hm.examHandler.SetRoster)
			exams.PUT("/:id/publish", staff, hm.examHandler.SetPublished)

			// Taking the exam - Students only
			exams.POST("/:id/start", student, hm.attemptHandler.StartAttempt)
			exams.GET("/:id/my-result", student, hm.resultHandler.MyResult)

			// Results - Teachers and Admins only
			exams.GET("/:id/results", staff, hm.resultHandler.CohortResults)
			exams.GET("/:id/results/export", staff, hm.resultHandler.ExportCohortResults)
			exams.GET("/:id/results/:student_id", staff, hm.resultHandler.StudentResult)
			exams.PUT("/:id/publish-results", admin, hm.resultHandler.PublishResults)
		}

		attempts := v1.Group("/attempts")
		attempts.Use(student)
		{
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answers", hm.attemptHandler.SaveAnswer)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/terminate", hm.attemptHandler.TerminateAttempt)
			attempts.POST("/:id/heartbeat", hm.attemptHandler.Heartbeat)
		}
	}
}
