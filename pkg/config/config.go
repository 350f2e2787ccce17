package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Backends de almacenamiento soportados. El backend se inyecta en la
// construcción de la app; no existe ningún switch global mutable.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde
// env y opcionalmente archivo).
type Config struct {
	App    AppConfig
	DB     DBConfig
	JWT    JWTConfig
	HTTP   HTTPConfig
	Ledger LedgerConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env     string // development, staging, production
	Name    string
	Storage string // memory | postgres
}

// LedgerConfig política del kardex.
type LedgerConfig struct {
	// AllowNegativeStock: las ventas pueden dejar stock negativo
	// (backorder). Por defecto true, reflejando el comportamiento observado
	// del negocio.
	AllowNegativeStock bool
	// LockTimeout espera máxima por el lock de un par (producto, ubicación).
	LockTimeout time.Duration
	// CriticalVarianceValue umbral de valor absoluto de varianza a partir
	// del cual un conteo se marca crítico. Cero desactiva la marca.
	CriticalVarianceValue decimal.Decimal
}

// DBConfig configuración de PostgreSQL. Si DatabaseURL no está vacío se usa
// como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si
// no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para
// caracteres especiales.
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

// JWTConfig configuración de JWT y del operador sembrado para la API.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
	// OperatorUser / OperatorPasswordHash credencial del operador de API
	// (hash bcrypt, sembrado por env — no hay gestión de usuarios aquí).
	OperatorUser         string
	OperatorPasswordHash string
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

// Load lee la configuración desde variables de entorno (y opcionalmente desde
// archivo .env). Las env vars tienen prioridad.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	threshold := decimal.Zero
	if raw := getString(v, "LEDGER_CRITICAL_VARIANCE_VALUE", ""); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("LEDGER_CRITICAL_VARIANCE_VALUE inválido: %w", err)
		}
		threshold = d
	}

	cfg := &Config{
		App: AppConfig{
			Env:     getString(v, "APP_ENV", "development"),
			Name:    getString(v, "APP_NAME", "kardex-api"),
			Storage: getString(v, "STORAGE_BACKEND", StoragePostgres),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "kardex"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:               getString(v, "JWT_SECRET", ""),
			Expiration:           getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:               getString(v, "JWT_ISSUER", "kardex-api"),
			OperatorUser:         getString(v, "API_OPERATOR_USER", "operador"),
			OperatorPasswordHash: getString(v, "API_OPERATOR_PASSWORD_HASH", ""),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Ledger: LedgerConfig{
			AllowNegativeStock:    getBool(v, "LEDGER_ALLOW_NEGATIVE_STOCK", true),
			LockTimeout:           time.Duration(getInt(v, "LEDGER_LOCK_TIMEOUT_MS", 3000)) * time.Millisecond,
			CriticalVarianceValue: threshold,
		},
	}

	switch cfg.App.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND desconocido: %q", cfg.App.Storage)
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
