// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/dangerclosesec/campusops/internal/auth"
	"github.com/dangerclosesec/campusops/internal/cache"
	"github.com/dangerclosesec/campusops/internal/config"
	"github.com/dangerclosesec/campusops/internal/email"
	"github.com/dangerclosesec/campusops/internal/handler"
	"github.com/dangerclosesec/campusops/internal/metrics"
	"github.com/dangerclosesec/campusops/internal/middleware"
	"github.com/dangerclosesec/campusops/internal/permission"
	"github.com/dangerclosesec/campusops/internal/repository"
	"github.com/dangerclosesec/campusops/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "startup error: %v\n", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func run() error {
	// Load configuration
	cfg := config.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     parseLevel(cfg.LogLevel),
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   a.Key,
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := setupDatabase(cfg)
	if err != nil {
		return fmt.Errorf("setting up database: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	// Data handles. Tenant data only goes through scoped; unscoped is kept
	// to the repositories that need it.
	scoped := repository.NewScopedDB(db)
	unscoped := repository.NewUnscopedDB(db)
	txm := repository.NewTxManager(db)

	// Initialize repositories
	userRepo := repository.NewUserRepository(scoped, unscoped)
	roleRepo := repository.NewRoleRepository(scoped)
	orgRepo := repository.NewOrganizationRepository(unscoped)
	adminRepo := repository.NewAdminRepository(unscoped)
	setupRepo := repository.NewSetupTokenRepository(scoped, unscoped)
	auditRepo := repository.NewAuditLogRepository(scoped)
	buildingRepo := repository.NewBuildingRepository(scoped)
	roomRepo := repository.NewRoomRepository(scoped)
	ticketRepo := repository.NewTicketRepository(scoped)
	eventRepo := repository.NewEventRepository(scoped)
	scheduleRepo := repository.NewScheduleRepository(scoped)

	// Initialize auth services
	passwordHasher := auth.NewPasswordHasher()
	userTokens := auth.NewUserTokenManager(cfg.OrgJWT.Secret, cfg.OrgJWT.ExpiryPeriod)
	adminTokens := auth.NewAdminTokenManager(cfg.AdminJWT.Secret, cfg.AdminJWT.ExpiryPeriod)

	// Initialize email service
	emailService, err := email.NewEmailService(cfg, email.Provider(cfg.Email.Provider))
	if err != nil {
		return fmt.Errorf("initializing email service: %w", err)
	}

	auditService := service.NewAuditLogService(auditRepo)

	resolverOpts := []permission.Option{
		permission.WithMetrics(m),
		permission.WithAuditLogger(auditService),
	}
	if cfg.Permissions.CacheTTL > 0 {
		grantCache := cache.NewInMemoryCache(cfg.Permissions.CacheTTL, time.Minute)
		grantCache.StartCleanup(ctx)
		defer grantCache.StopCleanup()
		resolverOpts = append(resolverOpts, permission.WithCache(grantCache))
		logger.Info("permission cache enabled", "ttl", cfg.Permissions.CacheTTL)
	}
	resolver := permission.NewResolver(roleRepo, resolverOpts...)

	setupService := service.NewSetupTokenService(setupRepo, userRepo, orgRepo, passwordHasher, emailService, m, auditService, cfg.SetupToken.TTL, cfg.BaseURL)
	accountService := service.NewAccountService(userRepo, roleRepo, orgRepo, adminRepo, passwordHasher, userTokens, adminTokens)
	userService := service.NewUserService(userRepo, txm, resolver, auditService)
	roleService := service.NewRoleService(roleRepo, resolver, auditService)
	orgService := service.NewOrganizationService(orgRepo, txm, roleService, userService, setupService)
	facilityService := service.NewFacilityService(buildingRepo, roomRepo, auditService)
	ticketService := service.NewTicketService(ticketRepo, roomRepo, userRepo, resolver, auditService, cfg.Tenancy.AnonymousTicketSubmit)
	calendarService := service.NewCalendarService(eventRepo, scheduleRepo, roomRepo, auditService)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(accountService, setupService, userService)
	facilityHandler := handler.NewFacilityHandler(facilityService)
	ticketHandler := handler.NewTicketHandler(ticketService)
	calendarHandler := handler.NewCalendarHandler(calendarService)
	userHandler := handler.NewUserHandler(userService, roleService, setupService)
	auditHandler := handler.NewAuditLogHandler(auditService)
	orgHandler := handler.NewOrganizationHandler(orgService)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.SetupToken.RatePerSec), cfg.SetupToken.RateBurst)
	go limiter.Cleanup(ctx, 3*time.Minute)

	if cfg.Tenancy.AllowOrgHeaderFallback {
		logger.Warn("organization header fallback enabled; unauthenticated requests may select an organization")
	}
	orgUser := middleware.OrgUser(userTokens, middleware.Options{
		AllowOrgHeaderFallback: cfg.Tenancy.AllowOrgHeaderFallback,
		Organizations:          orgService,
		Metrics:                m,
	})
	can := func(key string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(resolver, key)
	}

	// Create router
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestMeta)
	r.Use(m.Instrument)
	r.Use(loggingMiddleware(logger))
	r.Use(recoveryMiddleware(logger))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.OrgHeader},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Handle("/metrics", m.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Use(limiter.Middleware)

			r.Get("/setup/validate", authHandler.ValidateSetupToken)

			r.Group(func(r chi.Router) {
				r.Use(chimw.AllowContentType("application/json"))

				r.Post("/login", authHandler.Login)
				r.Post("/admin/login", authHandler.AdminLogin)
				r.Post("/setup/redeem", authHandler.RedeemSetupToken)
			})
		})

		// Organization routes
		r.Group(func(r chi.Router) {
			r.Use(chimw.AllowContentType("application/json"))
			r.Use(orgUser)

			r.Get("/me", authHandler.Me)

			r.Route("/buildings", func(r chi.Router) {
				r.With(can(permission.BuildingsRead)).Get("/", facilityHandler.ListBuildings)
				r.With(can(permission.BuildingsManage)).Post("/", facilityHandler.CreateBuilding)
				r.Route("/{buildingID}", func(r chi.Router) {
					r.With(can(permission.BuildingsRead)).Get("/", facilityHandler.GetBuilding)
					r.With(can(permission.BuildingsManage)).Put("/", facilityHandler.UpdateBuilding)
					r.With(can(permission.BuildingsManage)).Delete("/", facilityHandler.DeleteBuilding)

					r.With(can(permission.RoomsRead)).Get("/rooms", facilityHandler.ListRooms)
					r.With(can(permission.RoomsManage)).Post("/rooms", facilityHandler.CreateRoom)
					r.With(can(permission.RoomsRead)).Get("/rooms/{roomID}", facilityHandler.GetRoom)
					r.With(can(permission.RoomsManage)).Put("/rooms/{roomID}", facilityHandler.UpdateRoom)
					r.With(can(permission.RoomsManage)).Delete("/rooms/{roomID}", facilityHandler.DeleteRoom)
				})
			})

			r.Route("/tickets", func(r chi.Router) {
				// Submission and read scope are checked by the ticket service.
				r.Post("/", ticketHandler.Submit)
				r.Get("/", ticketHandler.List)
				r.Get("/{ticketID}", ticketHandler.Get)
				r.With(can(permission.TicketsManage)).Patch("/{ticketID}", ticketHandler.Update)
			})

			r.Route("/events", func(r chi.Router) {
				r.With(can(permission.EventsRead)).Get("/", calendarHandler.ListEvents)
				r.With(can(permission.EventsManage)).Post("/", calendarHandler.CreateEvent)
				r.With(can(permission.EventsManage)).Delete("/{eventID}", calendarHandler.DeleteEvent)
			})

			r.Route("/schedules", func(r chi.Router) {
				r.With(can(permission.SchedulesRead)).Get("/", calendarHandler.ListSchedules)
				r.With(can(permission.SchedulesManage)).Post("/", calendarHandler.CreateSchedule)
				r.With(can(permission.SchedulesManage)).Delete("/{scheduleID}", calendarHandler.DeleteSchedule)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(can(permission.UsersRead)).Get("/", userHandler.List)
				r.With(can(permission.UsersManage)).Post("/", userHandler.Create)
				r.With(can(permission.UsersManage)).Put("/{userID}/role", userHandler.AssignRole)
				r.With(can(permission.UsersManage)).Post("/{userID}/setup-link", userHandler.SendSetupLink)
			})

			r.Route("/roles", func(r chi.Router) {
				r.Use(can(permission.RolesManage))
				r.Get("/", userHandler.ListRoles)
				r.Post("/", userHandler.CreateRole)
				r.Put("/{roleID}/grants", userHandler.SetGrants)
			})

			r.With(can(permission.AuditRead)).Get("/audit-logs", auditHandler.List)
		})

		// Platform admin routes. These run without an organization scope.
		r.Route("/platform", func(r chi.Router) {
			r.Use(chimw.AllowContentType("application/json"))
			r.Use(middleware.PlatformAdmin(adminTokens, m))

			r.With(middleware.RequirePlatformPermission(auth.PlatformPermOrganizationsRead)).Get("/organizations", orgHandler.List)
			r.With(middleware.RequirePlatformPermission(auth.PlatformPermOrganizationsRead)).Get("/organizations/{orgID}", orgHandler.Get)
			r.With(middleware.RequirePlatformPermission(auth.PlatformPermOrganizationsManage)).Post("/organizations", orgHandler.Create)
			r.With(middleware.RequirePlatformPermission(auth.PlatformPermOrganizationsManage)).Patch("/organizations/{orgID}", orgHandler.SetStatus)
		})
	})

	// Create server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server error channel
	serverErrors := make(chan error, 1)

	// Start server
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for shutdown or error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("shutdown started")

		// Give outstanding requests a deadline for completion
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Gracefully shutdown the server
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// If shutdown times out, forcefully close
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// gormLogLevel maps LOG_LEVEL onto gorm's logger. SQL statements are only
// logged at debug and info.
func gormLogLevel(level string) logger.LogLevel {
	switch parseLevel(level) {
	case slog.LevelDebug, slog.LevelInfo:
		return logger.Info
	case slog.LevelError:
		return logger.Error
	default:
		return logger.Warn
	}
}

func setupDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"duration", time.Since(start),
					"status", ww.Status(),
					"size", ww.BytesWritten(),
					"requestID", chimw.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						"error", errors.New("panic recovered"),
						"panic", rvr,
						"stack", string(debug.Stack()),
						"requestID", chimw.GetReqID(r.Context()),
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"ok":false,"error":"Internal server error","error_code":"INTERNAL"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
