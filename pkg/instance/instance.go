package instance

import "os"

// ID identifies this process in logs. Platform dyno names win over the hostname.
func ID() string {
	for _, key := range []string{"DISHDASH_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
