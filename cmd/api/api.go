package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carrent/docs"
	"carrent/internal/auth"
	"carrent/internal/chat"
	"carrent/internal/domain/accesscontrol"
	"carrent/internal/domain/storage"
	"carrent/internal/mailer"
	"carrent/internal/notifications"
	"carrent/internal/ratelimiter"
	"carrent/internal/realtime"
	"carrent/internal/rental"
	"carrent/internal/reputation"
	"carrent/internal/wallet"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	logger        *zap.SugaredLogger
	cld           *cloudinary.Cloudinary
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter

	rental        *rental.Service
	refs          *rental.References
	reputation    *reputation.Engine
	wallet        *wallet.Service
	chat          *chat.Service
	notifications *notifications.Dispatcher

	chatHub         *realtime.Hub
	notificationHub *realtime.Hub
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(app.RateLimiterMiddleware)

	r.Route("/v1", func(r chi.Router) {
		// websockets outlive the request timeout below
		r.Route("/ws", func(r chi.Router) {
			r.Use(app.WebSocketAuthMiddleware)
			r.Get("/chat", app.chatSocketHandler)
			r.Get("/notifications", app.notificationSocketHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
			r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

			docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
			r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

			r.Route("/authentication", func(r chi.Router) {
				r.Post("/user", app.registerUserHandler)
				r.Put("/activate/{token}", app.activateUserHandler)
				r.Post("/token", app.createTokenHandler)
				r.Post("/refresh", app.refreshTokenHandler)
				r.Post("/revoke", app.revokeTokenHandler)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Get("/me", app.getCurrentUserHandler)
				r.Put("/me/username", app.updateUsernameHandler)
				r.Post("/me/avatar", app.uploadAvatarHandler)
				r.Post("/logout", app.logoutHandler)
				r.Post("/revoke-all", app.revokeAllTokensHandler)
				r.Get("/search", app.searchUsersHandler)

				r.Route("/{userID}", func(r chi.Router) {
					r.Get("/", app.getUserProfileHandler)
					r.Get("/rating", app.getUserRatingHandler)
					r.Get("/reviews", app.getUserReviewsHandler)
					r.Post("/reviews", app.rateUserHandler)
				})
			})

			r.Route("/cars", func(r chi.Router) {
				r.Get("/", app.listCarsHandler)
				r.Get("/top", app.topCarsHandler)

				r.Group(func(r chi.Router) {
					r.Use(app.AuthTokenMiddleware)
					r.Post("/", app.createCarHandler)
					r.Get("/mine", app.listMyCarsHandler)
					r.Put("/{carID}", app.updateCarHandler)
					r.Delete("/{carID}", app.deleteCarHandler)
					r.Post("/{carID}/images", app.uploadCarImagesHandler)
					r.Delete("/{carID}/images", app.deleteCarImageHandler)
				})

				r.Get("/{carID}", app.getCarHandler)
				r.Get("/{carID}/availability", app.carAvailabilityHandler)
			})

			r.Route("/bookings", func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Post("/", app.createBookingHandler)
				r.Get("/mine", app.listMyBookingsHandler)
				r.Get("/range", app.listBookingsInRangeHandler)
				r.Get("/car/{carID}", app.listCarBookingsHandler)
				r.Get("/owner/pending", app.listPendingRequestsHandler)
				r.Get("/owner/{userID}/brief", app.ownerBriefHandler)
				r.Get("/reference/{reference}", app.getBookingByReferenceHandler)

				r.Route("/{bookingID}", func(r chi.Router) {
					r.Get("/", app.getBookingHandler)
					r.Delete("/", app.cancelBookingHandler)
					r.Get("/images", app.bookingImagesHandler)
					r.Post("/respond", app.respondToBookingHandler)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Get("/", app.listNotificationsHandler)
				r.Get("/unread-count", app.unreadNotificationsCountHandler)
				r.Put("/read-all", app.markAllNotificationsReadHandler)
				r.Get("/{notificationID}", app.getNotificationHandler)
				r.Put("/{notificationID}/read", app.markNotificationReadHandler)
				r.Delete("/{notificationID}", app.deleteNotificationHandler)
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Get("/", app.listFavoritesHandler)
				r.Get("/{carID}", app.favoriteStatusHandler)
				r.Post("/{carID}", app.addFavoriteHandler)
				r.Delete("/{carID}", app.removeFavoriteHandler)
			})

			r.Route("/balance", func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Get("/", app.getBalanceHandler)
				r.Post("/top-up", app.topUpHandler)
				r.Post("/deduct", app.deductHandler)
				r.Get("/transactions", app.transactionHistoryHandler)
				r.Get("/sufficient", app.sufficientBalanceHandler)
				r.Post("/payments", app.processPaymentHandler)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Get("/conversations", app.listConversationsHandler)
				r.Get("/with/{userID}", app.chatHistoryHandler)
				r.Put("/with/{userID}/read", app.markChatReadHandler)
				r.Post("/messages", app.sendMessageHandler)
				r.Put("/messages/{messageID}", app.editMessageHandler)
				r.Delete("/messages/{messageID}", app.deleteMessageHandler)
				r.Get("/unread-count", app.chatUnreadCountHandler)
				r.Post("/uploads/image", app.uploadChatImageHandler)
				r.Post("/uploads/voice", app.uploadChatVoiceHandler)
				r.Get("/online", app.onlineUsersHandler)
			})

			r.Route("/push-tokens", func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Post("/", app.addPushTokenHandler)
				r.Delete("/", app.removePushTokenHandler)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Use(app.RequireRole(accesscontrol.AdminRoles...))
				r.Get("/roles", app.listRolesHandler)
				r.Put("/users/{userID}/verify", app.verifyUserHandler)
				r.Post("/users/{userID}/roles", app.assignRoleHandler)
				r.Delete("/users/{userID}/roles/{roleID}", app.removeRoleHandler)
				r.Post("/push-tokens/prune", app.pruneStaleTokensHandler)
			})
		})
	})
	return r
}

// healthCheckHandler godoc
//
//	@Summary		Health check
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status":  "ok",
		"env":     app.config.env,
		"version": version,
	}
	if err := app.jsonResponse(w, http.StatusOK, data); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) run(mux http.Handler) error {
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
