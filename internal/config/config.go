package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all daemon configuration loaded from environment
// variables. Every daemon reads the same struct and uses the sections
// relevant to it.
type Config struct {
	Services ServicesConfig
	Store    StoreConfig
	Session  SessionConfig
	Client   ClientConfig
	Debug    DebugConfig
}

// ServicesConfig holds the listen addresses of the four daemons. The
// gateways also use the customer/product entries as peer addresses.
type ServicesConfig struct {
	CustomerHost string `envconfig:"CUSTOMER_HOST" default:"127.0.0.1"`
	CustomerPort int    `envconfig:"CUSTOMER_PORT" default:"6001"`

	ProductHost string `envconfig:"PRODUCT_HOST" default:"127.0.0.1"`
	ProductPort int    `envconfig:"PRODUCT_PORT" default:"6002"`

	BuyerGatewayHost string `envconfig:"BUYER_GW_HOST" default:"127.0.0.1"`
	BuyerGatewayPort int    `envconfig:"BUYER_GW_PORT" default:"6003"`

	SellerGatewayHost string `envconfig:"SELLER_GW_HOST" default:"127.0.0.1"`
	SellerGatewayPort int    `envconfig:"SELLER_GW_PORT" default:"6004"`
}

// CustomerAddress returns the customer service address in host:port format.
func (s *ServicesConfig) CustomerAddress() string {
	return fmt.Sprintf("%s:%d", s.CustomerHost, s.CustomerPort)
}

// ProductAddress returns the product service address in host:port format.
func (s *ServicesConfig) ProductAddress() string {
	return fmt.Sprintf("%s:%d", s.ProductHost, s.ProductPort)
}

// BuyerGatewayAddress returns the buyer gateway address in host:port format.
func (s *ServicesConfig) BuyerGatewayAddress() string {
	return fmt.Sprintf("%s:%d", s.BuyerGatewayHost, s.BuyerGatewayPort)
}

// SellerGatewayAddress returns the seller gateway address in host:port format.
func (s *ServicesConfig) SellerGatewayAddress() string {
	return fmt.Sprintf("%s:%d", s.SellerGatewayHost, s.SellerGatewayPort)
}

// StoreConfig selects and parameterizes the persistence backend for the
// backing services.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, mysql, or memory

	CustomerPath string `envconfig:"CUSTOMER_STORE_PATH" default:"./data/customer.db"`
	ProductPath  string `envconfig:"PRODUCT_STORE_PATH" default:"./data/product.db"`

	// MySQL settings
	MySQLHost     string `envconfig:"MYSQL_HOST" default:"localhost"`
	MySQLPort     int    `envconfig:"MYSQL_PORT" default:"3306"`
	MySQLName     string `envconfig:"MYSQL_NAME" default:"minimart"`
	MySQLUser     string `envconfig:"MYSQL_USER" default:"root"`
	MySQLPassword string `envconfig:"MYSQL_PASS" default:""`
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.MySQLUser, s.MySQLPassword, s.MySQLHost, s.MySQLPort, s.MySQLName)
}

// SessionConfig selects the session store backend.
type SessionConfig struct {
	Backend string        `envconfig:"SESSION_BACKEND" default:"memory"` // memory or redis
	Timeout time.Duration `envconfig:"SESSION_TIMEOUT" default:"300s"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// RedisAddress returns the redis address in host:port format.
func (s *SessionConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", s.RedisHost, s.RedisPort)
}

// ClientConfig holds transport client timeouts for gateway→backing
// calls.
type ClientConfig struct {
	DialTimeout time.Duration `envconfig:"CLIENT_DIAL_TIMEOUT" default:"5s"`
	CallTimeout time.Duration `envconfig:"CLIENT_CALL_TIMEOUT" default:"5s"`
}

// DebugConfig holds the optional per-daemon debug HTTP listener.
type DebugConfig struct {
	Addr string `envconfig:"DEBUG_ADDR" default:""` // empty disables
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
