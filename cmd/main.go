package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"infofix-oracle/internal/auth"
	"infofix-oracle/internal/blockchain"
	"infofix-oracle/internal/config"
	"infofix-oracle/internal/database"
	"infofix-oracle/internal/handlers"
	"infofix-oracle/internal/jobs"
	"infofix-oracle/internal/repository"
	"infofix-oracle/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to the chain RPC
	ethClient, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		log.Fatalf("Failed to connect to chain RPC: %v", err)
	}
	defer ethClient.Close()

	taskReader := blockchain.NewTaskReader(
		ethClient,
		cfg.Chain.TaskManagerAddress,
		time.Duration(cfg.Chain.ReadTimeoutSeconds)*time.Second,
		time.Duration(cfg.Chain.TaskCacheTTLSecs)*time.Second,
	)

	// Initialize the oracle signer once; it is injected everywhere else
	voucherSigner, err := blockchain.NewEIP712Signer(
		cfg.Oracle.PrivateKey,
		cfg.Oracle.DomainName,
		cfg.Oracle.DomainVersion,
		cfg.Chain.ChainID,
		cfg.Chain.TaskManagerAddress,
	)
	if err != nil {
		log.Fatalf("Failed to initialize oracle signer: %v", err)
	}
	log.Printf("Oracle signer address: %s", voucherSigner.Address().Hex())

	// Initialize repository
	repo := repository.NewSubmissionRepository(database.GetDB())

	// Initialize services
	authService := services.NewAuthService()
	submissionService := services.NewSubmissionService(repo)
	approvalService := services.NewApprovalService(repo, taskReader, voucherSigner)
	voucherService := services.NewVoucherService(repo)
	taskService := services.NewTaskService(taskReader)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	submissionHandler := handlers.NewSubmissionHandler(submissionService, approvalService)
	voucherHandler := handlers.NewVoucherHandler(voucherService, taskService)

	// Start digest job (cache pruning + pending-review counts)
	digestJob := jobs.NewOracleDigestJob(repo, taskReader)
	digestJob.Start(5 * time.Minute)
	log.Println("Oracle digest job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	router.POST("/auth/wallet", authHandler.WalletLogin)

	// Public oracle routes
	api := router.Group("/api")
	{
		api.POST("/submissions", submissionHandler.CreateSubmission)
		api.GET("/submissions", submissionHandler.ListSubmissions)
		api.GET("/submissions/:id", submissionHandler.GetSubmission)
		api.PATCH("/submissions/:id/approve", submissionHandler.ApproveSubmission)
		api.PATCH("/submissions/:id/reject", submissionHandler.RejectSubmission)
		api.GET("/voucher", voucherHandler.GetVoucher)
		api.GET("/tasks/:id", voucherHandler.GetTask)
	}

	// Session-protected routes
	me := router.Group("/api/me")
	me.Use(auth.AuthMiddleware())
	{
		me.GET("/submissions", submissionHandler.MySubmissions)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Oracle server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
