package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/inventa-labs/inventa/backend/internal/auth"
	"github.com/inventa-labs/inventa/backend/internal/config"
	"github.com/inventa-labs/inventa/backend/internal/customid"
	"github.com/inventa-labs/inventa/backend/internal/database"
	"github.com/inventa-labs/inventa/backend/internal/discussion"
	"github.com/inventa-labs/inventa/backend/internal/inventory"
	"github.com/inventa-labs/inventa/backend/internal/logging"
	"github.com/inventa-labs/inventa/backend/internal/metrics"
	"github.com/inventa-labs/inventa/backend/internal/server"
	"github.com/inventa-labs/inventa/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "inventa-api",
		Short: "Inventa inventory catalog backend service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().Int("field-limit", defaults.GetInt("inventory.field_limit"), "Custom field limit per kind")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "inventory.field_limit", "field-limit")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        appConfig.Issuer,
	})
	if err != nil {
		return err
	}

	usersService, err := users.NewService(users.ServiceConfig{
		Database: db,
		Clock:    time.Now,
	})
	if err != nil {
		return err
	}

	sequences, err := customid.NewSequenceStore(db)
	if err != nil {
		return err
	}
	engine := customid.NewEngine(customid.EngineConfig{})

	appMetrics := metrics.New()

	inventoryService, err := inventory.NewService(inventory.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: inventory.NewUUIDProvider(),
		Engine:     engine,
		Sequences:  sequences,
		Logger:     logger,
		Observer:   appMetrics,
		FieldLimit: appConfig.FieldLimit,
	})
	if err != nil {
		return err
	}

	discussionService, err := discussion.NewService(discussion.ServiceConfig{
		Database:   db,
		Access:     inventoryService,
		IDProvider: inventory.NewUUIDProvider(),
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		SessionValidator: sessionValidator,
		Users:            usersService,
		Inventories:      inventoryService,
		Discussions:      discussionService,
		Metrics:          appMetrics,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newTokenCommand mints a session token for local development and scripting.
func newTokenCommand() *cobra.Command {
	var (
		userID string
		email  string
		name   string
		roles  string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			if userID == "" || email == "" {
				return errors.New("token: --user-id and --email are required")
			}

			issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
				SigningSecret: []byte(appConfig.SigningSecret),
				Issuer:        appConfig.Issuer,
				TokenTTL:      appConfig.TokenTTL,
			})

			roleNames := []string{string(users.RoleUser)}
			if roles != "" {
				roleNames = strings.Split(roles, ",")
			}
			token, expiresIn, err := issuer.IssueToken(userID, email, name, roleNames)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires_in_s=%d\n", token, expiresIn)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Subject user id")
	cmd.Flags().StringVar(&email, "email", "", "User email claim")
	cmd.Flags().StringVar(&name, "name", "", "User display name claim")
	cmd.Flags().StringVar(&roles, "roles", "", "Comma-separated roles (default USER)")

	return cmd
}
