package configloader

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvConfig names the environment variable overriding the config path.
const EnvConfig = "SHELLGEIST_CONFIG"

// ResolveConfigPath finds file for subsystem ("shellgeist" for the host,
// "geistctl" for the client). $SHELLGEIST_CONFIG wins unchecked; otherwise
// ~/.shellgeist/<subsystem>/<file> and then /etc/shellgeist/<file> are used
// if they exist. ErrNoConfig is returned when neither does.
func ResolveConfigPath(subsystem, file string) (string, error) {
	if env := os.Getenv(EnvConfig); env != "" {
		return env, nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".shellgeist", subsystem, file)
		if _, err := os.Stat(userPath); err == nil {
			return userPath, nil
		}
	}
	systemPath := filepath.Join("/etc/shellgeist", file)
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath, nil
	}
	return "", fmt.Errorf("%w for %s/%s", ErrNoConfig, subsystem, file)
}
