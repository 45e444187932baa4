package instance

import "os"

// GetID returns the process instance identifier used in log fields and lock
// ownership, or a default value.
func GetID() string {
	for _, key := range []string{"DELIVERY_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
