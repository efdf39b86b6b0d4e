package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultSignedURLTTL is how long presigned download URLs stay valid when
// no TTL is configured.
const DefaultSignedURLTTL = time.Hour

// Options configures the file services.
type Options struct {
	// Bucket is the single bucket every blob lives in.
	Bucket string

	// SignedURLTTL is the lifetime of presigned download URLs.
	SignedURLTTL time.Duration

	// StagingDir receives uploads before they are sent to the blob store.
	// Empty means os.TempDir().
	StagingDir string
}

func (o Options) withDefaults() Options {
	if o.SignedURLTTL <= 0 {
		o.SignedURLTTL = DefaultSignedURLTTL
	}
	return o
}

// OrphanedBlobs counts blobs stored without a matching file record.
var OrphanedBlobs = promauto.NewCounter(prometheus.CounterOpts{
	Name: "entfiles_orphaned_blobs_total",
	Help: "Blobs written to the object store whose metadata insert failed.",
})
