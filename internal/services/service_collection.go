// file: internal/services/service_collection.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"go.uber.org/zap"

	"sidequest/internal/appinfo"
	"sidequest/internal/cache"
	"sidequest/internal/config"
	"sidequest/internal/database"
	"sidequest/internal/events"
	"sidequest/internal/llm"
	"sidequest/internal/moderation"
	"sidequest/internal/questgen"
	"sidequest/internal/realtime"
	"sidequest/internal/repositories"
)

const (
	defaultFromAddress   = "SideQuest <no-reply@sidequest.app>"
	notificationPurgeTTL = time.Hour
	challengeSettleEvery = 5 * time.Minute
)

// ServiceCollection wires every service with explicit dependency injection
type ServiceCollection struct {
	// Core Services
	AuthService         AuthService         `json:"-"`
	UserService         UserService         `json:"-"`
	CategoryService     CategoryService     `json:"-"`
	QuestService        QuestService        `json:"-"`
	AIQuestService      AIQuestService      `json:"-"`
	SubmissionService   SubmissionService   `json:"-"`
	GamificationService GamificationService `json:"-"`
	ModerationService   ModerationService   `json:"-"`
	ChallengeService    ChallengeService    `json:"-"`
	NotificationService NotificationService `json:"-"`

	// Infrastructure Services
	FileService  FileService  `json:"-"`
	EmailService EmailService `json:"-"`

	// Repository Collection
	Repositories *repositories.Collection `json:"-"`

	// Infrastructure Components
	Cache      cache.Cache            `json:"-"`
	EventBus   events.EventBus        `json:"-"`
	Hub        *realtime.Hub          `json:"-"`
	Provider   llm.Provider           `json:"-"`
	Moderator  *moderation.Moderator  `json:"-"`
	Selector   *questgen.Selector     `json:"-"`
	Logger     *zap.Logger            `json:"-"`
	Config     *config.Config         `json:"-"`
	DBManager  *database.Manager      `json:"-"`
	Cloudinary *cloudinary.Cloudinary `json:"-"`

	// Service Management
	healthCheckers map[string]HealthChecker
	startTime      time.Time
	shutdown       chan struct{}
	wg             sync.WaitGroup
	mu             sync.RWMutex
	initialized    bool
	started        bool
}

// ServiceHealth represents the health status of the service collection
type ServiceHealth struct {
	Status          string                   `json:"status"`
	Version         string                   `json:"version"`
	Timestamp       time.Time                `json:"timestamp"`
	Services        map[string]ServiceStatus `json:"services"`
	Dependencies    map[string]ServiceStatus `json:"dependencies"`
	Uptime          string                   `json:"uptime"`
	TotalServices   int                      `json:"total_services"`
	HealthyServices int                      `json:"healthy_services"`
	Issues          []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of an individual component
type ServiceStatus struct {
	Name         string                 `json:"name"`
	Status       string                 `json:"status"` // healthy, degraded, unhealthy
	LastCheck    time.Time              `json:"last_check"`
	ResponseTime string                 `json:"response_time"`
	Error        string                 `json:"error,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// healthFunc adapts a function to HealthChecker
type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// NewServiceCollection builds the full service graph over an open database
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	collection := &ServiceCollection{
		DBManager:      dbManager,
		Config:         cfg,
		Logger:         logger,
		healthCheckers: make(map[string]HealthChecker),
		startTime:      time.Now(),
		shutdown:       make(chan struct{}),
	}

	// Initialize in dependency order
	if err := collection.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	repos, err := repositories.NewCollection(dbManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}
	collection.Repositories = repos

	if err := collection.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	collection.initializeMonitoring()

	collection.initialized = true
	logger.Info("Service collection initialized successfully",
		zap.Int("total_services", collection.getServiceCount()),
		zap.Bool("llm_enabled", collection.Provider != nil),
		zap.Bool("media_enabled", collection.FileService != nil),
	)

	return collection, nil
}

// ===============================
// INITIALIZATION METHODS
// ===============================

// initializeInfrastructure sets up cache, event bus, realtime hub, media
// storage and the generation provider
func (sc *ServiceCollection) initializeInfrastructure() error {
	sc.Logger.Info("Initializing infrastructure components")

	c, err := cache.NewCache(&sc.Config.Cache, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = c

	sc.EventBus = events.NewInMemoryEventBus(events.DefaultEventBusConfig(), sc.Logger)
	sc.Hub = realtime.NewHub(sc.Config.CORS.AllowedOrigins, sc.Logger)

	if sc.Config.Cloudinary.IsConfigured() {
		cld, err := cloudinary.NewFromParams(
			sc.Config.Cloudinary.CloudName,
			sc.Config.Cloudinary.APIKey,
			sc.Config.Cloudinary.APISecret,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudinary: %w", err)
		}
		sc.Cloudinary = cld
	}

	provider, err := llm.NewProvider(&sc.Config.LLM, sc.Logger)
	switch {
	case errors.Is(err, llm.ErrProviderDisabled):
		sc.Logger.Info("LLM provider disabled, quests come from the mock generator")
	case err != nil:
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	default:
		sc.Provider = provider
	}

	var classifier moderation.Classifier
	if sc.Config.LLM.UseForModeration && sc.Provider != nil {
		classifier = moderation.NewLLMClassifier(sc.Provider)
	}
	sc.Moderator = moderation.NewModerator(classifier, sc.Logger)

	initial, err := questgen.ParseCategory(sc.Config.Generation.InitialCategory)
	if err != nil || initial == "" {
		initial = questgen.CategoryLearning
	}
	sc.Selector = questgen.NewSelector(
		questgen.NewAlternator(initial),
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)

	sc.Logger.Info("Infrastructure components initialized",
		zap.String("cache_provider", sc.Config.Cache.Provider),
		zap.String("initial_category", string(initial)),
	)
	return nil
}

// initializeServices sets up the service layer
func (sc *ServiceCollection) initializeServices() error {
	sc.Logger.Info("Initializing services")
	repos := sc.Repositories

	sc.EmailService = NewEmailService(sc.Logger, defaultFromAddress)

	if sc.Cloudinary != nil {
		fileConfig := DefaultFileConfig()
		if sc.Config.Cloudinary.Folder != "" {
			fileConfig.RootFolder = sc.Config.Cloudinary.Folder
		}
		if sc.Config.Cloudinary.MaxFileSize > 0 {
			fileConfig.MaxImageSize = sc.Config.Cloudinary.MaxFileSize
		}
		if sc.Config.Cloudinary.MaxRetries > 0 {
			fileConfig.MaxRetries = sc.Config.Cloudinary.MaxRetries
		}
		sc.FileService = NewFileService(sc.Cloudinary, sc.Logger, fileConfig)
	}

	sc.AuthService = NewAuthService(repos.User, sc.Logger, &sc.Config.Auth)
	sc.UserService = NewUserService(repos.User, sc.Cache, sc.Logger, sc.Config.Auth.BCryptCost)
	sc.CategoryService = NewCategoryService(repos.Category, sc.Cache, sc.Logger)
	sc.QuestService = NewQuestService(repos.Quest, repos.Category, sc.Moderator, sc.EventBus, sc.Logger)

	aiConfig := DefaultAIQuestConfig()
	if sc.Config.LLM.Timeout > 0 {
		aiConfig.Timeout = sc.Config.LLM.Timeout
	}
	if sc.Config.LLM.Temperature > 0 {
		aiConfig.Temperature = sc.Config.LLM.Temperature
	}
	sc.AIQuestService = NewAIQuestService(
		sc.Selector,
		sc.Provider,
		repos.Category,
		repos.Quest,
		sc.Moderator,
		sc.EventBus,
		sc.Logger,
		aiConfig,
	)

	sc.GamificationService = NewGamificationService(repos, sc.Cache, sc.EventBus, sc.Logger)
	sc.SubmissionService = NewSubmissionService(repos, sc.GamificationService, sc.FileService, sc.Moderator, sc.EventBus, sc.Logger)
	sc.ModerationService = NewModerationService(sc.Moderator, repos.Quest, repos.Submission, sc.EventBus, sc.Logger)
	sc.ChallengeService = NewChallengeService(repos, sc.GamificationService, sc.EventBus, sc.Logger)
	sc.NotificationService = NewNotificationService(repos.Notification, repos.User, sc.Hub, sc.EmailService, sc.Logger)

	if err := SubscribeNotifications(sc.EventBus, sc.NotificationService, sc.Logger); err != nil {
		return fmt.Errorf("failed to subscribe notifications: %w", err)
	}

	sc.Logger.Info("All services initialized")
	return nil
}

// initializeMonitoring registers component health checks
func (sc *ServiceCollection) initializeMonitoring() {
	sc.registerHealthChecker("cache", healthFunc(sc.Cache.Health))
	sc.registerHealthChecker("event_bus", healthFunc(func(ctx context.Context) error {
		stats := sc.EventBus.Stats()
		if limit := events.DefaultEventBusConfig().BufferSize; stats.QueueDepth >= limit {
			return fmt.Errorf("event queue full (%d)", stats.QueueDepth)
		}
		return nil
	}))
}

// ===============================
// SERVICE LIFECYCLE MANAGEMENT
// ===============================

// Start starts the event bus and background jobs
func (sc *ServiceCollection) Start(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.initialized {
		return fmt.Errorf("service collection not initialized")
	}
	if sc.started {
		return nil
	}

	sc.Logger.Info("Starting service collection")

	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	sc.wg.Add(2)
	go sc.startNotificationPurge()
	go sc.startChallengeSettlement()

	if sc.Config.IsProduction() {
		sc.wg.Add(1)
		go sc.startHealthCheckMonitoring()
	}

	sc.started = true
	sc.Logger.Info("Service collection started successfully")
	return nil
}

// Shutdown stops background work and releases connections
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	sc.mu.Lock()
	select {
	case <-sc.shutdown:
	default:
		close(sc.shutdown)
	}
	sc.mu.Unlock()

	var shutdownErrors []error

	sc.Hub.Close()

	if err := sc.EventBus.Stop(ctx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("event bus shutdown: %w", err))
	}

	done := make(chan struct{})
	go func() {
		sc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		sc.Logger.Info("All background processes stopped")
	case <-ctx.Done():
		sc.Logger.Warn("Shutdown timeout exceeded")
		shutdownErrors = append(shutdownErrors, fmt.Errorf("shutdown timeout exceeded"))
	}

	if err := sc.Cache.Close(); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("cache close: %w", err))
	}

	if sc.DBManager != nil {
		if err := sc.DBManager.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		sc.Logger.Error("Errors occurred during shutdown",
			zap.Int("error_count", len(shutdownErrors)),
			zap.Error(errors.Join(shutdownErrors...)),
		)
		return fmt.Errorf("shutdown completed with %d errors", len(shutdownErrors))
	}

	sc.Logger.Info("Service collection shutdown completed successfully")
	return nil
}

// ===============================
// HEALTH AND MONITORING
// ===============================

// HealthCheck reports database and component health
func (sc *ServiceCollection) HealthCheck(ctx context.Context) *ServiceHealth {
	health := &ServiceHealth{
		Status:       "healthy",
		Version:      appinfo.GetVersion(),
		Timestamp:    time.Now().UTC(),
		Services:     make(map[string]ServiceStatus),
		Dependencies: make(map[string]ServiceStatus),
		Uptime:       time.Since(sc.startTime).Round(time.Second).String(),
	}

	db := sc.DBManager.Health(ctx)
	dbStatus := ServiceStatus{
		Name:         "database",
		Status:       db.Status,
		LastCheck:    health.Timestamp,
		ResponseTime: db.ResponseTime,
		Error:        db.Error,
		Metadata: map[string]interface{}{
			"open_connections": db.Metrics.OpenConnections,
			"slow_queries":     db.Metrics.SlowQueryCount,
		},
	}
	health.Dependencies["database"] = dbStatus
	if db.Status != "healthy" {
		health.Issues = append(health.Issues, fmt.Sprintf("database: %s", db.Error))
	}

	health.Dependencies["llm"] = ServiceStatus{
		Name:      "llm",
		Status:    "healthy",
		LastCheck: health.Timestamp,
		Metadata:  map[string]interface{}{"provider": sc.providerName()},
	}

	sc.mu.RLock()
	checkers := make(map[string]HealthChecker, len(sc.healthCheckers))
	for name, hc := range sc.healthCheckers {
		checkers[name] = hc
	}
	sc.mu.RUnlock()

	for name, checker := range checkers {
		health.TotalServices++
		status := sc.checkServiceHealth(ctx, name, checker)
		health.Services[name] = status
		if status.Status == "healthy" {
			health.HealthyServices++
		} else {
			health.Issues = append(health.Issues, fmt.Sprintf("%s: %s", name, status.Error))
		}
	}

	switch {
	case db.Status == "unhealthy":
		health.Status = "unhealthy"
	case len(health.Issues) > 0:
		health.Status = "degraded"
	}
	return health
}

func (sc *ServiceCollection) providerName() string {
	if sc.Provider == nil {
		return llm.ProviderMock
	}
	return sc.Provider.Name()
}

// registerHealthChecker registers a named health checker
func (sc *ServiceCollection) registerHealthChecker(name string, hc HealthChecker) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.healthCheckers[name] = hc
}

// checkServiceHealth checks the health of an individual component
func (sc *ServiceCollection) checkServiceHealth(ctx context.Context, name string, checker HealthChecker) ServiceStatus {
	start := time.Now()
	status := ServiceStatus{
		Name:      name,
		Status:    "healthy",
		LastCheck: start,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	}

	status.ResponseTime = time.Since(start).String()
	return status
}

// startHealthCheckMonitoring logs degraded health every 30 seconds
func (sc *ServiceCollection) startHealthCheckMonitoring() {
	defer sc.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			health := sc.HealthCheck(ctx)
			cancel()

			if health.Status != "healthy" {
				sc.Logger.Warn("Service health degraded",
					zap.String("status", health.Status),
					zap.Strings("issues", health.Issues),
				)
			}

		case <-sc.shutdown:
			sc.Logger.Info("Health check monitoring stopped")
			return
		}
	}
}

// startNotificationPurge removes expired notifications hourly
func (sc *ServiceCollection) startNotificationPurge() {
	defer sc.wg.Done()

	ticker := time.NewTicker(notificationPurgeTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := sc.NotificationService.PurgeExpired(ctx); err != nil {
				sc.Logger.Warn("Notification purge failed", zap.Error(err))
			}
			cancel()

		case <-sc.shutdown:
			return
		}
	}
}

// startChallengeSettlement pays out ended challenges on a fixed interval
func (sc *ServiceCollection) startChallengeSettlement() {
	defer sc.wg.Done()

	ticker := time.NewTicker(challengeSettleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			settled, err := sc.ChallengeService.SettleEnded(ctx)
			cancel()
			if err != nil {
				sc.Logger.Warn("Challenge settlement failed", zap.Error(err))
			} else if len(settled) > 0 {
				sc.Logger.Info("Challenges settled", zap.Int("count", len(settled)))
			}

		case <-sc.shutdown:
			return
		}
	}
}

// getServiceCount returns the number of initialized services
func (sc *ServiceCollection) getServiceCount() int {
	count := 0
	for _, svc := range []interface{}{
		sc.AuthService, sc.UserService, sc.CategoryService, sc.QuestService,
		sc.AIQuestService, sc.SubmissionService, sc.GamificationService,
		sc.ModerationService, sc.ChallengeService, sc.NotificationService,
		sc.EmailService,
	} {
		if svc != nil {
			count++
		}
	}
	if sc.FileService != nil {
		count++
	}
	return count
}

// IsInitialized returns whether the service collection is fully initialized
func (sc *ServiceCollection) IsInitialized() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.initialized
}
