package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/cgrente/profile-intake-platform/config"
	"github.com/cgrente/profile-intake-platform/credentials"
	"github.com/cgrente/profile-intake-platform/routes"
	"github.com/cgrente/profile-intake-platform/services"
	"github.com/cgrente/profile-intake-platform/utils"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	logFile, _ := config.InitLogging(cfg.LogFile, cfg.LogLevel)
	if logFile != nil {
		defer logFile.Close()
	}

	if config.DebugEnabled() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = config.LogWriter
	gin.DefaultErrorWriter = config.LogWriter

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.InitDB(cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}

	store, err := credentials.NewStore(credentials.Options{
		Token:       cfg.APIToken,
		TokenBcrypt: cfg.APITokenBcrypt,
		JWTSecret:   cfg.JWTSecret,
		JWTIssuer:   cfg.JWTIssuer,
	})
	if err != nil {
		log.Fatalf("❌ Invalid credentials configuration: %v", err)
	}

	files, err := services.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	var notifiers services.Notifiers
	if cfg.SMTP.Enabled() {
		notifiers = append(notifiers, services.NewMailNotifier(config.NewMailer(cfg.SMTP)))
		log.Printf("📧 Completion emails enabled via %s", cfg.SMTP.Host)
	}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("❌ redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}()
		notifiers = append(notifiers, services.NewRedisNotifier(redisClient, cfg.RedisChannel))
		log.Printf("📣 Completion events published on %s", cfg.RedisChannel)
	}

	var jobOpts []services.CompletionJobOption
	if len(notifiers) > 0 {
		jobOpts = append(jobOpts, services.WithNotifier(notifiers))
	}
	job := services.NewCompletionJob(config.DB, files, cfg.ProcessingDelay, jobOpts...)
	defer job.Close()

	recovered, err := job.Recover(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to recover completion tasks: %v", err)
	}
	if recovered.Rescheduled > 0 || recovered.Abandoned > 0 {
		log.Printf("Recovered completion tasks: %d rescheduled, %d abandoned", recovered.Rescheduled, recovered.Abandoned)
	}

	rules := utils.NewUploadRules(cfg.AllowedFileTypes)
	router := routes.NewRouter(cfg, routes.Dependencies{
		Credentials:    store,
		Profiles:       services.NewProfileService(config.DB),
		Submissions:    services.NewSubmissionService(config.DB, files, job, rules, cfg.MaxUploadBytes()),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s", cfg.ServerPort)
	log.Printf("📂 Uploads stored in %s (types: %v, max %d MB)", files.Dir(), rules.Extensions(), cfg.MaxFileSizeMB)
	log.Printf("⏱️ Simulated processing delay %s", cfg.ProcessingDelay)
	if cfg.EnableCORS {
		log.Printf("🌐 CORS configured for origins %v", cfg.CORSOrigins)
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatal("❌ Failed to start server:", err)
	}
	if err := serve(ctx, srv, ln, 10*time.Second); err != nil {
		log.Printf("❌ Server error: %v", err)
	}
	log.Println("Server stopped")
}

// serve runs srv on ln until ctx is cancelled, then waits up to timeout for
// in-flight requests before returning.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Println("Shutting down, waiting for in-flight requests")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
