package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Secretos de desarrollo. Nunca deben usarse con APP_ENV=production.
const (
	DevAccessSecret  = "dev-access-secret-change-me"
	DevRefreshSecret = "dev-refresh-secret-change-me"
)

// ErrInsecureSecrets se devuelve al validar una configuración de producción con secretos por defecto.
var ErrInsecureSecrets = errors.New("config: secretos JWT por defecto o vacíos en producción")

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App      AppConfig
	DB       DBConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	Security SecurityConfig
	Redis    RedisConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// IsProduction informa si la app corre en modo producción.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	// ForceIPv4 marca el dial como tcp4 (contenedores sin ruta IPv6).
	ForceIPv4 bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de los dos tipos de token. Access y refresh usan secreto,
// issuer, audience y duración distintos.
type JWTConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	AccessIssuer    string
	RefreshIssuer   string
	AccessAudience  string
	RefreshAudience string
	RevokeOnReuse   bool
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SecurityConfig parámetros de hashing, timeouts y rate limiting.
type SecurityConfig struct {
	BcryptCost      int
	StoreTimeout    time.Duration
	LoginRateLimit  int
	LoginRateWindow time.Duration
	TenantCacheTTL  time.Duration
}

// RedisConfig conexión opcional a Redis (rate limiting). Addr vacío = deshabilitado.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled informa si hay Redis configurado.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_ACCESS_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return FromViper(v), nil
}

// FromViper construye la configuración a partir de una instancia de Viper ya poblada.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "legal-saas-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "legal_saas"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    int32(getInt(v, "DB_MAX_CONNS", 20)),
			MinConns:    int32(getInt(v, "DB_MIN_CONNS", 2)),
			ForceIPv4:   getBool(v, "DB_FORCE_IPV4", false),
		},
		JWT: JWTConfig{
			AccessSecret:    getString(v, "JWT_ACCESS_SECRET", ""),
			RefreshSecret:   getString(v, "JWT_REFRESH_SECRET", ""),
			AccessTTL:       time.Duration(getInt(v, "JWT_ACCESS_EXPIRATION_MINUTES", 15)) * time.Minute,
			RefreshTTL:      time.Duration(getInt(v, "JWT_REFRESH_EXPIRATION_HOURS", 24*7)) * time.Hour,
			AccessIssuer:    getString(v, "JWT_ACCESS_ISSUER", "legal-saas-api"),
			RefreshIssuer:   getString(v, "JWT_REFRESH_ISSUER", "legal-saas-api-refresh"),
			AccessAudience:  getString(v, "JWT_ACCESS_AUDIENCE", "legal-saas-app"),
			RefreshAudience: getString(v, "JWT_REFRESH_AUDIENCE", "legal-saas-refresh"),
			RevokeOnReuse:   getBool(v, "JWT_REVOKE_ON_REUSE", false),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Security: SecurityConfig{
			BcryptCost:      getInt(v, "SECURITY_BCRYPT_COST", 12),
			StoreTimeout:    time.Duration(getInt(v, "SECURITY_STORE_TIMEOUT_SECONDS", 5)) * time.Second,
			LoginRateLimit:  getInt(v, "SECURITY_LOGIN_RATE_LIMIT", 10),
			LoginRateWindow: time.Duration(getInt(v, "SECURITY_LOGIN_RATE_WINDOW_SECONDS", 60)) * time.Second,
			TenantCacheTTL:  time.Duration(getInt(v, "SECURITY_TENANT_CACHE_SECONDS", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
	}
}

// Validate comprueba los secretos JWT. En producción rechaza secretos vacíos, por defecto
// o iguales entre access y refresh. Fuera de producción completa los vacíos con los de
// desarrollo y devuelve los avisos a registrar.
func (c *Config) Validate() (warnings []string, err error) {
	insecure := func(s, def string) bool { return s == "" || s == def }

	if c.App.IsProduction() {
		if insecure(c.JWT.AccessSecret, DevAccessSecret) || insecure(c.JWT.RefreshSecret, DevRefreshSecret) {
			return nil, ErrInsecureSecrets
		}
		if c.JWT.AccessSecret == c.JWT.RefreshSecret {
			return nil, fmt.Errorf("%w: access y refresh comparten secreto", ErrInsecureSecrets)
		}
		return nil, nil
	}

	if c.JWT.AccessSecret == "" {
		c.JWT.AccessSecret = DevAccessSecret
		warnings = append(warnings, "JWT_ACCESS_SECRET no definido: usando secreto de desarrollo")
	}
	if c.JWT.RefreshSecret == "" {
		c.JWT.RefreshSecret = DevRefreshSecret
		warnings = append(warnings, "JWT_REFRESH_SECRET no definido: usando secreto de desarrollo")
	}
	return warnings, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
