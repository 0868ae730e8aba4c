// file: internal/router/api_routes.go
package router

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sidequest/internal/handlers/api/v1/aiquests"
	"sidequest/internal/handlers/api/v1/auth"
	"sidequest/internal/handlers/api/v1/categories"
	"sidequest/internal/handlers/api/v1/challenges"
	"sidequest/internal/handlers/api/v1/gamification"
	"sidequest/internal/handlers/api/v1/moderation"
	"sidequest/internal/handlers/api/v1/notifications"
	"sidequest/internal/handlers/api/v1/quests"
	"sidequest/internal/handlers/api/v1/submissions"
	"sidequest/internal/handlers/api/v1/users"
	"sidequest/internal/middleware"
	"sidequest/internal/response"
	"sidequest/internal/services"
)

// AddAPIRoutes mounts every REST endpoint on api
func AddAPIRoutes(
	api chi.Router,
	sc *services.ServiceCollection,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) {
	maxUpload := services.DefaultFileConfig().MaxVideoSize
	if size := sc.Config.Cloudinary.MaxFileSize; size > maxUpload {
		maxUpload = size
	}

	authController := auth.NewAuthController(sc.AuthService, sc.Config.Auth.FrontendURL, logger, responseBuilder)
	userController := users.NewUserController(sc.UserService, logger, responseBuilder)
	categoryController := categories.NewCategoryController(sc.CategoryService, logger, responseBuilder)
	questController := quests.NewQuestController(sc.QuestService, logger, responseBuilder)
	submissionController := submissions.NewSubmissionController(sc.SubmissionService, maxUpload, logger, responseBuilder)
	aiQuestController := aiquests.NewAIQuestController(sc.AIQuestService, logger, responseBuilder)
	gamificationController := gamification.NewGamificationController(sc.GamificationService, logger, responseBuilder)
	moderationController := moderation.NewModerationController(sc.ModerationService, logger, responseBuilder)
	challengeController := challenges.NewChallengeController(sc.ChallengeService, logger, responseBuilder)

	var hub notifications.SocketServer
	if sc.Hub != nil {
		hub = sc.Hub
	}
	notificationController := notifications.NewNotificationController(sc.NotificationService, hub, logger, responseBuilder)

	// ===============================
	// PUBLIC ENDPOINTS (token optional)
	// ===============================

	api.Group(func(r chi.Router) {
		r.Use(authMiddleware.OptionalAuth())
		r.Use(rateLimiter.Global())

		r.Post("/auth/register", authController.Register)
		r.Post("/auth/login", authController.Login)
		r.Get("/auth/google/login", authController.GoogleLogin)
		r.Get("/auth/google/callback", authController.GoogleCallback)

		r.Get("/quests", questController.ListQuests)
		r.Get("/quests/{id}", questController.GetQuest)
		r.Get("/quests/{id}/submissions", submissionController.ListForQuest)
		r.Get("/submissions/{id}", submissionController.GetSubmission)

		r.Get("/ai-quests/stats", aiQuestController.Stats)
		r.Get("/ai-quests/suggestions", aiQuestController.Suggestions)

		r.Get("/gamification/levels", gamificationController.Levels)
		r.Get("/gamification/leaderboard", gamificationController.Leaderboard)

		r.Get("/categories", categoryController.ListCategories)
		r.Get("/categories/{id}", categoryController.GetCategory)

		r.Get("/challenges", challengeController.ListChallenges)
		r.Get("/challenges/{id}", challengeController.GetChallenge)
		r.Get("/challenges/{id}/leaderboard", challengeController.Leaderboard)
	})

	// ===============================
	// AUTHENTICATED ENDPOINTS
	// ===============================

	api.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth())
		r.Use(rateLimiter.Global())

		r.Get("/auth/me", authController.Me)

		// quests and submissions
		r.Post("/quests", questController.CreateQuest)
		r.Put("/quests/{id}", questController.UpdateQuest)
		r.Delete("/quests/{id}", questController.DeleteQuest)
		r.Post("/quests/{id}/submissions", submissionController.Submit)
		r.Get("/submissions/mine", submissionController.ListMine)
		r.Post("/submissions/media", submissionController.UploadMedia)

		// generation
		r.With(rateLimiter.Generation()).Post("/ai-quests/generate", aiQuestController.Generate)
		r.With(rateLimiter.Generation()).Post("/ai-quests/from-idea", aiQuestController.FromIdea)
		r.Post("/ai-quests/save", aiQuestController.Save)

		// progression
		r.Get("/gamification/profile", gamificationController.Profile)
		r.Get("/gamification/badges", gamificationController.Badges)
		r.Get("/gamification/xp-history", gamificationController.XPHistory)

		r.Post("/moderation/text", moderationController.CheckText)
		r.Post("/challenges/{id}/join", challengeController.JoinChallenge)

		// account
		r.Get("/users/profile", userController.GetProfile)
		r.Put("/users/profile", userController.UpdateProfile)
		r.Get("/users/preferences", userController.GetPreferences)
		r.Put("/users/preferences", userController.UpdatePreferences)
		r.Put("/users/password", userController.ChangePassword)
		r.Delete("/users/account", userController.DeleteAccount)

		// notifications
		r.Get("/notifications", notificationController.ListNotifications)
		r.Get("/notifications/unread-count", notificationController.UnreadCount)
		r.Post("/notifications/read-all", notificationController.MarkAllRead)
		r.Post("/notifications/{id}/read", notificationController.MarkRead)
		r.Get("/ws", notificationController.WebSocket)

		// ===============================
		// MODERATOR ENDPOINTS
		// ===============================

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireModerator())

			r.Post("/submissions/{id}/review", submissionController.Review)
			r.Get("/moderation/queue", moderationController.Queue)
			r.Post("/moderation/quests/{id}/review", moderationController.ReviewQuest)
			r.Post("/challenges", challengeController.CreateChallenge)
		})

		// ===============================
		// ADMIN ENDPOINTS
		// ===============================

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAdmin())

			r.Post("/categories", categoryController.CreateCategory)
			r.Put("/categories/{id}", categoryController.UpdateCategory)
			r.Delete("/categories/{id}", categoryController.DeleteCategory)
		})
	})
}
