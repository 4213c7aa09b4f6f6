package instance

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

const envInstanceID = "STOREFRONT_INSTANCE_ID"

var (
	generatedOnce sync.Once
	generated     string
)

// GetID returns the gateway instance identifier. Without an explicit
// STOREFRONT_INSTANCE_ID a random id is generated once per process so that
// replicas never share an origin.
func GetID() string {
	if id := os.Getenv(envInstanceID); id != "" {
		return id
	}
	generatedOnce.Do(func() {
		generated = "gw-" + uuid.NewString()
	})
	return generated
}
