package app

import (
	"context"
	"database/sql"

	"identity-service/internal/config"
	"identity-service/internal/db"
	"identity-service/internal/keycloak"
	"identity-service/internal/logger"
	"identity-service/internal/notify"

	_ "github.com/lib/pq"
)

type Infra struct {
	DB     *db.DB
	IDP    keycloak.Client
	Mailer notify.Sender
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := db.RunEmployeeMigration(ctx, sqlDB); err != nil {
		return nil, err
	}

	logger.Info("database ready", nil)

	idp := keycloak.NewAdminClient(
		cfg.KeycloakBaseURL,
		cfg.KeycloakRealm,
		cfg.KeycloakClientID,
		cfg.KeycloakClientSecret,
	)

	if err := idp.Ping(ctx); err != nil {
		// degraded start: provisioning and role calls will keep failing
		// with a provider-unavailable kind until Keycloak is back
		logger.Warn("identity provider unreachable at startup", map[string]any{
			"error": err.Error(),
		})
	} else {
		logger.Info("identity provider ready", nil)
	}

	mailer := notify.NewSMTPSender(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPassword,
		cfg.MailFrom,
	)

	return &Infra{
		DB:     &db.DB{DB: sqlDB},
		IDP:    idp,
		Mailer: mailer,
	}, nil
}
