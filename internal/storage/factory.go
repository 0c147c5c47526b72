package storage

// NewStorage creates an ObjectStorage instance based on the configuration.
// All supported backends (AWS S3, MinIO, R2) speak the S3 API, so this
// currently always returns an S3 client.
// Parameters:
//   - cfg: storage configuration including endpoint, credentials, and bucket.
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *S3Config) (ObjectStorage, error) {
	return NewS3Storage(cfg)
}
