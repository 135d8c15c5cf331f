package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/craftberry/shop/internal/auth"
	"github.com/craftberry/shop/internal/blobstore"
	"github.com/craftberry/shop/internal/bootstrap"
	"github.com/craftberry/shop/internal/config"
	"github.com/craftberry/shop/internal/es"
	"github.com/craftberry/shop/internal/events"
	"github.com/craftberry/shop/internal/httpserver"
	"github.com/craftberry/shop/internal/identity"
	"github.com/craftberry/shop/internal/kvstore"
	"github.com/craftberry/shop/internal/logging"
	authmw "github.com/craftberry/shop/internal/middleware/auth"
	"github.com/craftberry/shop/internal/repository"
	"github.com/craftberry/shop/internal/service/notification"
	"github.com/craftberry/shop/internal/service/order"
	"github.com/craftberry/shop/internal/service/reset"
	"github.com/craftberry/shop/internal/service/search"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LOG_LEVEL)
	ctx := logging.IntoContext(context.Background(), logger)

	var store kvstore.Store
	if cfg.DB_HOST != "" {
		db, err := cfg.InitDB()
		if err != nil {
			log.Fatalf("database init: %v", err)
		}
		store, err = kvstore.NewGorm(db)
		if err != nil {
			log.Fatalf("store init: %v", err)
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()
	} else {
		logger.Warn("DB_HOST is not set, using the in-memory store")
		store = kvstore.NewMem()
	}
	store = kvstore.WithMetrics(store)

	var producer *events.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{cfg.KAFKA_ADDRESS})
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka close", "error", err)
			}
		}()
	}

	esClient, err := es.NewClient(cfg)
	if err != nil {
		log.Fatalf("elasticsearch init: %v", err)
	}
	searcher := search.New(esClient, cfg.ES_INDEX)

	blobs, err := blobstore.NewFS(cfg.BLOB_DIR, cfg.BLOB_BASE_URL)
	if err != nil {
		log.Fatalf("blob store init: %v", err)
	}

	users := repository.NewUsers(store)
	products := repository.NewProducts(store)
	carts := repository.NewCarts(store)
	wishlists := repository.NewWishlists(store)
	orders := repository.NewOrders(store)
	gallery := repository.NewGallery(store, blobs)
	testimonials := repository.NewTestimonials(store)

	provider := identity.NewLocal(store, []byte(cfg.JWT_SECRET))
	notifications := notification.New(store)
	resetSvc := reset.New(store, users, provider)
	orderSvc := &order.Service{
		Orders:        orders,
		Carts:         carts,
		Users:         users,
		Notifications: notifications,
		Producer:      producer,
	}

	if err := bootstrap.Run(ctx, bootstrap.Deps{
		Provider:      provider,
		Users:         users,
		AdminEmail:    cfg.ADMIN_EMAIL,
		AdminPassword: cfg.ADMIN_PASSWORD,
	}); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())

	httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{
			Provider: provider,
			Users:    users,
			Reset:    resetSvc,
			AdminKey: cfg.ADMIN_SIGNUP_KEY,
		},
		Products:      &httpserver.ProductHTTP{Products: products, Searcher: searcher, Producer: producer},
		Cart:          &httpserver.CartHTTP{Carts: carts},
		Wishlist:      &httpserver.WishlistHTTP{Wishlists: wishlists},
		Orders:        &httpserver.OrderHTTP{Orders: orders, Service: orderSvc},
		Gallery:       &httpserver.GalleryHTTP{Gallery: gallery, Blobs: blobs},
		Testimonials:  &httpserver.TestimonialHTTP{Testimonials: testimonials},
		Notifications: &httpserver.NotificationHTTP{Notifications: notifications},
		Stats:         &httpserver.StatsHTTP{Orders: orders, Users: users, Products: products},
		AuthMW:        authmw.New(auth.NewGate(provider, users)),
		Logger:        logger,
		UploadsDir:    cfg.BLOB_DIR,
	})

	srv := &http.Server{
		Addr:         cfg.LISTEN_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", cfg.LISTEN_ADDR)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	logger.Info("shutdown_complete")
}
