package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"www.github.com/Wanderer0074348/EventSync/src/auth"
	"www.github.com/Wanderer0074348/EventSync/src/cache"
	"www.github.com/Wanderer0074348/EventSync/src/calendar"
	"www.github.com/Wanderer0074348/EventSync/src/config"
	"www.github.com/Wanderer0074348/EventSync/src/events"
	"www.github.com/Wanderer0074348/EventSync/src/handlers"
	"www.github.com/Wanderer0074348/EventSync/src/mail"
	"www.github.com/Wanderer0074348/EventSync/src/middleware"
	"www.github.com/Wanderer0074348/EventSync/src/models"
	"www.github.com/Wanderer0074348/EventSync/src/reconcile"
	"www.github.com/Wanderer0074348/EventSync/src/session"
	"www.github.com/Wanderer0074348/EventSync/src/store"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	} else {
		log.Println("✅ Loaded .env file")
	}
}

func main() {
	if os.Getenv("GOOGLE_CLIENT_ID") == "" {
		log.Fatal("❌ GOOGLE_CLIENT_ID not set in environment or .env file")
	}
	if os.Getenv("GOOGLE_CLIENT_SECRET") == "" {
		log.Fatal("❌ GOOGLE_CLIENT_SECRET not set in environment or .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	log.Printf("✓ Config loaded successfully")

	redisCache, err := cache.NewRedisCache(&cfg.Redis)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Redis: %v", err)
	}
	defer redisCache.Close()
	redisClient := redisCache.GetClient()
	log.Printf("✓ Redis connected")

	db, err := cache.OpenSQLite(cfg.LocalCache.Path)
	if err != nil {
		log.Fatalf("❌ Failed to open device database: %v", err)
	}
	defer db.Close()

	var localCache models.LocalCache
	switch cfg.LocalCache.Driver {
	case "redis":
		localCache = redisCache.WithPrefix(cfg.LocalCache.KeyPrefix)
	default:
		localCache = cache.NewSQLiteCache(db)
	}
	log.Printf("✓ Local cache ready (%s)", cfg.LocalCache.Driver)

	eventStore := store.NewEventStore(redisClient)

	oauthConfig := auth.NewGoogleOAuthConfig(&cfg.Google)
	grants := auth.NewGrantStore(db, oauthConfig, cfg.Google.RevokeURL)
	googleClient := calendar.NewGoogleClient(grants, &cfg.Google)

	reconciler := reconcile.NewReconciler(eventStore, googleClient, reconcile.NewDefaultPushPolicy(&cfg.Sync), &cfg.Sync)
	log.Printf("✓ Reconciler ready (pull every %s, calendar %q)", cfg.Sync.PullInterval, cfg.Google.CalendarID)

	var mailer auth.Mailer
	if cfg.Mail.Host == "" {
		log.Println("⚠️  SMTP host not configured, verification links will be logged")
		mailer = mail.LogMailer{}
	} else {
		mailer = mail.NewMailService(&cfg.Mail, cfg.Calendar.Name)
	}

	userStore := auth.NewUserStore(redisClient)
	sessionStore := auth.NewSessionStore(redisClient, cfg.Auth.SessionDuration)
	stateStore := auth.NewStateStore(redisClient)
	provider := auth.NewProvider(
		userStore,
		sessionStore,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewVerificationSigner(cfg.Auth.SessionSecret, cfg.Auth.VerificationTTL),
		mailer,
		cfg.Mail.BaseURL,
	)

	scheduler := session.NewScheduler()
	manager := session.NewManager(provider, grants, eventStore, localCache, reconciler, scheduler, &cfg.Auth, &cfg.Sync)
	log.Printf("✓ Session manager started")

	eventService := events.NewService(eventStore, reconciler, manager, localCache, cfg.Calendar.Location())

	authHandler := auth.NewHandler(oauthConfig, stateStore, sessionStore, provider, grants, manager, &auth.Config{
		SessionDuration: cfg.Auth.SessionDuration,
		FrontendURL:     cfg.Auth.FrontendURL,
		CookieDomain:    cfg.Auth.CookieDomain,
		CookieSecure:    cfg.Auth.CookieSecure,
		CookieSameSite:  cfg.Auth.CookieSameSite,
	})
	authMiddleware := middleware.NewAuthMiddleware(sessionStore, userStore, manager)
	eventHandler := handlers.NewEventHandler(eventService, cfg.Calendar.Name)
	syncHandler := handlers.NewSyncHandler(manager)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"redis": handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
		"local_cache": handlers.PingFunc(db.PingContext),
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.HealthCheck)

		authHandler.RegisterRoutes(v1, authMiddleware.RequireAuth())

		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		eventHandler.RegisterRoutes(protected)
		syncHandler.RegisterRoutes(protected)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Printf("🚀 EventSync running on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}
	manager.Shutdown()

	log.Println("Server exited")
}
