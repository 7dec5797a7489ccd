package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rukioi/legal-saas-api/pkg/config"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg := config.FromViper(viper.New())

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.NotEqual(t, cfg.JWT.AccessIssuer, cfg.JWT.RefreshIssuer)
	assert.NotEqual(t, cfg.JWT.AccessAudience, cfg.JWT.RefreshAudience)
	assert.False(t, cfg.JWT.RevokeOnReuse)
	assert.EqualValues(t, 2, cfg.DB.MinConns)
	assert.False(t, cfg.DB.ForceIPv4)
	assert.Equal(t, 12, cfg.Security.BcryptCost)
	assert.Equal(t, 5*time.Second, cfg.Security.StoreTimeout)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_LeeValores(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")
	v.Set("JWT_ACCESS_EXPIRATION_MINUTES", "30")
	v.Set("REDIS_ADDR", "localhost:6379")
	v.Set("JWT_REVOKE_ON_REUSE", true)

	cfg := config.FromViper(v)

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.JWT.RevokeOnReuse)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	db := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "legal", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/legal?sslmode=disable", db.ConnectionString())

	db.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", db.ConnectionString())
}

func TestValidate_DesarrolloUsaSecretosPorDefectoConAviso(t *testing.T) {
	cfg := config.FromViper(viper.New())

	warnings, err := cfg.Validate()
	require.NoError(t, err)
	assert.Len(t, warnings, 2)
	assert.Equal(t, config.DevAccessSecret, cfg.JWT.AccessSecret)
	assert.Equal(t, config.DevRefreshSecret, cfg.JWT.RefreshSecret)
}

func TestValidate_ProduccionRechazaSecretosPorDefecto(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")
	v.Set("JWT_ACCESS_SECRET", config.DevAccessSecret)
	v.Set("JWT_REFRESH_SECRET", "otro-secreto")

	_, err := config.FromViper(v).Validate()
	assert.ErrorIs(t, err, config.ErrInsecureSecrets)
}

func TestValidate_ProduccionRechazaSecretoCompartido(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")
	v.Set("JWT_ACCESS_SECRET", "mismo")
	v.Set("JWT_REFRESH_SECRET", "mismo")

	_, err := config.FromViper(v).Validate()
	assert.ErrorIs(t, err, config.ErrInsecureSecrets)
}

func TestValidate_ProduccionConSecretosPropios(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")
	v.Set("JWT_ACCESS_SECRET", "a-very-long-access-secret")
	v.Set("JWT_REFRESH_SECRET", "a-very-long-refresh-secret")

	warnings, err := config.FromViper(v).Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
