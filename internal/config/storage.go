package config

import "strings"

// StorageConfig describes the S3-compatible object store that holds course
// assets.  Supabase Storage exposes an S3 endpoint at
// <project>/storage/v1/s3 and serves public objects from
// <project>/storage/v1/object/public/<bucket>/<path>.
type StorageConfig struct {
	Endpoint      string            // S3 endpoint URL
	Region        string            // signing region
	AccessKey     string            // S3 access key id
	SecretKey     string            // S3 secret
	PublicBaseURL string            // prefix for public object URLs, bucket and path are appended
	Buckets       map[string]string // asset kind -> bucket name
}

// LoadStorageConfig reads the object store settings.  The public base URL
// defaults to the Supabase public object path derived from SUPABASE_URL.
func LoadStorageConfig() StorageConfig {
	project := strings.TrimRight(envStr("SUPABASE_URL", ""), "/")
	return StorageConfig{
		Endpoint:      envStr("STORAGE_S3_ENDPOINT", project+"/storage/v1/s3"),
		Region:        envStr("STORAGE_S3_REGION", "us-east-1"),
		AccessKey:     envStr("STORAGE_S3_ACCESS_KEY", ""),
		SecretKey:     envStr("STORAGE_S3_SECRET_KEY", ""),
		PublicBaseURL: strings.TrimRight(envStr("STORAGE_PUBLIC_URL", project+"/storage/v1/object/public"), "/"),
		Buckets: map[string]string{
			"video":     envStr("STORAGE_BUCKET_VIDEO", "course-videos"),
			"document":  envStr("STORAGE_BUCKET_DOCUMENT", "course-documents"),
			"thumbnail": envStr("STORAGE_BUCKET_THUMBNAIL", "course-thumbnails"),
		},
	}
}

// Enabled reports whether credentials for the object store are present.
func (s StorageConfig) Enabled() bool {
	return s.AccessKey != "" && s.SecretKey != "" && s.Endpoint != ""
}
