package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"carrent/internal/ratelimiter"
)

type config struct {
	addr        string
	env         string
	apiURL      string
	frontendURL string
	db          dbConfig
	mail        mailConfig
	auth        authConfig
	rateLimiter ratelimiter.Config
	push        pushConfig
	cloudinary  cloudinaryConfig
	bookings    bookingConfig
}

type dbConfig struct {
	addr        string
	maxConns    int32
	minConns    int32
	maxIdleTime string
}

type mailConfig struct {
	exp       time.Duration
	fromEmail string
	smtp      smtpConfig
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type basicConfig struct {
	user string
	pass string
}

type tokenConfig struct {
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
	aud             string
}

type pushConfig struct {
	expoAccessToken string
}

type cloudinaryConfig struct {
	url string
}

type bookingConfig struct {
	referenceSalt string
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %d\n", key, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %t\n", key, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %s\n", key, fallback)
		return fallback
	}
	return d
}

// loadConfig reads the environment. Call godotenv.Load first to pick up a
// local .env file.
func loadConfig() config {
	return config{
		addr:        getEnv("ADDR", ":8080"),
		env:         getEnv("ENV", "development"),
		apiURL:      getEnv("EXTERNAL_URL", "localhost:8080"),
		frontendURL: getEnv("FRONTEND_URL", "http://localhost:8081"),
		db: dbConfig{
			addr:        getEnv("DB_ADDR", ""),
			maxConns:    int32(getEnvInt("DB_MAX_OPEN_CONNS", 30)),
			minConns:    int32(getEnvInt("DB_MAX_IDLE_CONNS", 5)),
			maxIdleTime: getEnv("DB_MAX_IDLE_TIME", "15m"),
		},
		mail: mailConfig{
			exp:       getEnvDuration("MAIL_INVITATION_EXP", time.Hour*24*3),
			fromEmail: getEnv("MAIL_FROM_EMAIL", ""),
			smtp: smtpConfig{
				host:     getEnv("SMTP_HOST", ""),
				port:     getEnvInt("SMTP_PORT", 587),
				username: getEnv("SMTP_USERNAME", ""),
				password: getEnv("SMTP_PASSWORD", ""),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: getEnv("AUTH_BASIC_USER", ""),
				pass: getEnv("AUTH_BASIC_PASS", ""),
			},
			token: tokenConfig{
				secret:          getEnv("AUTH_TOKEN_SECRET", ""),
				accessTokenExp:  getEnvDuration("AUTH_ACCESS_TOKEN_EXP", time.Hour),
				refreshTokenExp: getEnvDuration("AUTH_REFRESH_TOKEN_EXP", time.Hour*24*7),
				iss:             getEnv("AUTH_TOKEN_ISSUER", "CarRent"),
				aud:             getEnv("AUTH_TOKEN_AUDIENCE", "CarRent"),
			},
		},
		rateLimiter: ratelimiter.Config{
			RequestsPerTimeFrame: getEnvInt("RATELIMITER_REQUESTS_COUNT", 200),
			TimeFrame:            getEnvDuration("RATELIMITER_TIME_FRAME", 5*time.Second),
			Enabled:              getEnvBool("RATE_LIMITER_ENABLED", false),
		},
		push: pushConfig{
			expoAccessToken: getEnv("EXPO_ACCESS_TOKEN", ""),
		},
		cloudinary: cloudinaryConfig{
			url: getEnv("CLOUDINARY_URL", ""),
		},
		bookings: bookingConfig{
			referenceSalt: getEnv("BOOKING_REFERENCE_SALT", "carrent-bookings"),
		},
	}
}

// validate reports every missing setting the server cannot start without.
func (c config) validate() error {
	var errs []error
	required := []struct{ key, value string }{
		{"DB_ADDR", c.db.addr},
		{"AUTH_TOKEN_SECRET", c.auth.token.secret},
		{"AUTH_BASIC_USER", c.auth.basic.user},
		{"AUTH_BASIC_PASS", c.auth.basic.pass},
		{"CLOUDINARY_URL", c.cloudinary.url},
		{"SMTP_HOST", c.mail.smtp.host},
		{"MAIL_FROM_EMAIL", c.mail.fromEmail},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if c.db.maxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be positive"))
	}
	if c.auth.token.accessTokenExp <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_EXP must be positive"))
	}
	return errors.Join(errs...)
}
