package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/booking"
	"ms-marketplace/internal/booking/booking_api"
	booking_db "ms-marketplace/internal/booking/db"
	bookingredis "ms-marketplace/internal/booking/redis"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database/migrations"
	"ms-marketplace/internal/inventory"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/moderation"
	moderation_db "ms-marketplace/internal/moderation/db"
	"ms-marketplace/internal/moderation/moderation_api"
	"ms-marketplace/internal/payment"
	payment_db "ms-marketplace/internal/payment/db"
	"ms-marketplace/internal/payment/payment_api"
	"ms-marketplace/internal/tickets"
	ticket_db "ms-marketplace/internal/tickets/db"
	"ms-marketplace/internal/tickets/ticket_api"
	"ms-marketplace/internal/users"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	// Expiry notifications drive the reservation hold subscriber.
	if _, err := redisClient.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	} else {
		log.Info("REDIS", "Keyspace notifications enabled for expired events")
	}

	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))
	return bunDB, redisClient
}

// subscribeHoldExpiry cancels bookings whose reservation hold lapsed while
// still pending, so stale pending bookings cannot sit on stock forever.
func subscribeHoldExpiry(rdb *redis.Client, bookingService *booking.Service, log *logger.Logger) {
	ctx := context.Background()

	pubsub := rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	log.Info("REDIS", "Subscribed to Redis keyevent expired notifications")

	go func() {
		for msg := range pubsub.Channel() {
			bookingID, ok := bookingredis.BookingIDFromExpiredKey(msg.Payload)
			if !ok {
				continue
			}
			log.Info("HOLD_EXPIRY", fmt.Sprintf("Reservation hold expired for booking: %s", bookingID))

			if err := bookingService.ExpireHold(ctx, bookingID); err != nil {
				log.Error("HOLD_EXPIRY", fmt.Sprintf("Failed to expire booking %s: %v", bookingID, err))
			}
		}
	}()
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Marketplace Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
		log.Info("DATABASE", "Migrations applied")
	}

	log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer kafkaProducer.Close()

	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.AllTopics()); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Required topics ensured successfully")
	}

	payment.InitStripe()

	userStore := users.NewStore(bunDB)
	inventoryStore := inventory.NewStore(bunDB)
	ticketDB := &ticket_db.DB{Bun: bunDB}
	bookingDB := &booking_db.DB{Bun: bunDB}
	paymentDB := &payment_db.DB{Bun: bunDB}
	moderationDB := &moderation_db.DB{Bun: bunDB}
	holds := bookingredis.NewHolds(redisClient, log)

	ticketService := tickets.NewService(ticketDB, userStore, log)
	bookingService := booking.NewService(bookingDB, inventoryStore, ticketDB, holds, kafkaProducer, log)
	paymentService := payment.NewService(
		paymentDB,
		payment.StripeProvider{},
		bookingService,
		ticketDB,
		log,
		cfg.Stripe.Currency,
		cfg.Stripe.SuccessURL,
		cfg.Stripe.CancelURL,
	)
	moderationService := moderation.NewService(moderationDB, ticketDB, userStore, kafkaProducer, log)

	bookingHandler := &booking_api.Handler{BookingService: bookingService, Users: userStore, Logger: log}
	paymentHandler := &payment_api.Handler{PaymentService: paymentService, Logger: log}
	ticketHandler := &ticket_api.Handler{TicketService: ticketService, Logger: log}
	moderationHandler := &moderation_api.Handler{ModerationService: moderationService, Logger: log}

	tokenCache := auth.NewTokenCache(redisClient, cfg.Auth.TokenCacheTTL)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/api/tickets", ticketHandler.ListTickets)
	r.Get("/api/payments/success", paymentHandler.PaymentSuccess)
	r.Get("/api/payments/cancel", paymentHandler.PaymentCancel)
	r.Post("/api/payments/webhook", paymentHandler.StripeWebhook)
	log.Info("ROUTER", "Public ticket listing and payment callback endpoints registered")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenCache, userStore))
		log.Info("AUTH", "Bearer verification middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", bookingHandler.CreateBooking)
				r.Get("/", bookingHandler.ListMyBookings)
				r.Get("/vendor", bookingHandler.ListVendorBookings)
				r.Get("/{bookingId}", bookingHandler.GetBooking)
				r.Post("/{bookingId}/accept", bookingHandler.AcceptBooking)
				r.Post("/{bookingId}/reject", bookingHandler.RejectBooking)
				r.Post("/{bookingId}/checkout", paymentHandler.CreateCheckout)
			})
			log.Info("ROUTER", "Booking routes registered under /api/bookings")

			r.Route("/tickets", func(r chi.Router) {
				r.Post("/", ticketHandler.CreateTicket)
				r.Get("/mine", ticketHandler.ListMyTickets)
				r.Get("/{ticketId}", ticketHandler.GetTicket)
				r.Put("/{ticketId}", ticketHandler.UpdateTicket)
				r.Delete("/{ticketId}", ticketHandler.DeleteTicket)
			})
			log.Info("ROUTER", "Ticket routes registered under /api/tickets")

			r.Route("/admin", func(r chi.Router) {
				r.Post("/tickets/{ticketId}/approve", moderationHandler.ApproveTicket)
				r.Post("/tickets/{ticketId}/reject", moderationHandler.RejectTicket)
				r.Put("/tickets/{ticketId}/advertise", moderationHandler.SetAdvertised)
				r.Put("/users/{email}/role", moderationHandler.SetUserRole)
				r.Post("/vendors/{email}/fraud", moderationHandler.MarkVendorFraud)
			})
			log.Info("ROUTER", "Moderation routes registered under /api/admin")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info("REDIS", "Starting reservation hold expiry subscription")
	subscribeHoldExpiry(redisClient, bookingService, log)

	go func() {
		log.Info("HTTP", fmt.Sprintf("Marketplace Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Marketplace Service shutdown complete")
	}
}
