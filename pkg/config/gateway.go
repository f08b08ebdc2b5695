package config

import "time"

// GatewayConfig configures the perimeter proxy.
type GatewayConfig struct {
	// IdentityBaseURL is where the identity service lives.
	IdentityBaseURL string

	// ValidatePath is the who-am-I endpoint on the identity service.
	ValidatePath string

	// StorageBaseURL is where the media storage service lives.
	StorageBaseURL string

	// ClientTimeout bounds every outbound call the gateway makes, the
	// validate round-trip included.
	ClientTimeout time.Duration

	// PublicPaths bypass the authorize step entirely.
	PublicPaths []string
}

func loadGatewayConfig() GatewayConfig {
	return GatewayConfig{
		IdentityBaseURL: getEnv("IDENTITY_BASE_URL", "http://localhost:8081"),
		ValidatePath:    getEnv("IDENTITY_VALIDATE_PATH", "/validate"),
		StorageBaseURL:  getEnv("STORAGE_BASE_URL", "http://localhost:8082"),
		ClientTimeout:   getEnvDuration("GATEWAY_CLIENT_TIMEOUT", 10*time.Second),
		PublicPaths: getEnvStringSlice("GATEWAY_PUBLIC_PATHS", []string{
			"/users/auth/register",
			"/users/auth/login",
			"/users/auth/verify_otp",
			"/users/auth/send_otp",
			"/users/auth/reset_password/otp",
			"/users/auth/refresh",
		}),
	}
}

// StorageConfig selects the media storage backend for the identity service.
type StorageConfig struct {
	Mode      string // "local" or "s3"
	LocalPath string
	AWSRegion string
	AWSBucket string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Mode:      getEnv("STORAGE_MODE", "local"),
		LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
		AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		AWSBucket: getEnv("AWS_BUCKET", "perimeter-media"),
	}
}
