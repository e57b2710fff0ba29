package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the core runtime configuration.  Each field corresponds to
// an environment variable.  Secrets for the hosted identity provider are
// kept here because every request path depends on them.
type Config struct {
	Env      string // application environment (e.g. "development", "production")
	Host     string // interface to bind
	Port     string // HTTP port to listen on
	LogLevel string // DEBUG, INFO, WARN, ERROR

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	SupabaseURL        string // base URL of the hosted project, e.g. https://xyz.supabase.co
	SupabaseAnonKey    string // public anon key, sent as apikey on user-scoped calls
	SupabaseServiceKey string // service role key, used only by admin operations

	FrontendURL       string // public origin used to build redirect and checkout URLs
	CORSOrigin        string // allowed browser origin
	SignupRedirectURL string // where confirmation emails send the user
	MaxUploadBytes    int64  // multipart upload limit
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Addr returns host:port for the HTTP listener.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// LoadDotenv loads a .env file when one is present.  A missing file is not an
// error; values already exported in the environment take precedence.
func LoadDotenv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		log.Printf("config: could not read .env: %v", err)
	}
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	frontend := envStr("FRONTEND_URL", "http://localhost:5000")
	return Config{
		Env:      envStr("APP_ENV", "development"),
		Host:     envStr("HOST", "0.0.0.0"),
		Port:     envStr("PORT", "5000"),
		LogLevel: strings.ToUpper(envStr("LOG_LEVEL", "INFO")),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: envStr("DB_PORT", "3306"),
		DBName: must("DB_NAME"),

		SupabaseURL:        strings.TrimRight(must("SUPABASE_URL"), "/"),
		SupabaseAnonKey:    must("SUPABASE_ANON_KEY"),
		SupabaseServiceKey: must("SUPABASE_SERVICE_ROLE_KEY"),

		FrontendURL:       strings.TrimRight(frontend, "/"),
		CORSOrigin:        envStr("CORS_ORIGIN", "http://localhost:5000"),
		SignupRedirectURL: envStr("SIGNUP_REDIRECT_URL", strings.TrimRight(frontend, "/")+"/signIn.html"),
		MaxUploadBytes:    int64(envInt("MAX_UPLOAD_BYTES", 100<<20)),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
