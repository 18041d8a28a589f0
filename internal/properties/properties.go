package properties

import (
	"os"
	"path/filepath"
)

// RootPath is the base directory for scene processing; every temp and
// delivery path derives from it. Defaults to ~/landsat when unset.
func RootPath() string {
	if root := os.Getenv("LANDSAT_ROOT_PATH"); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "landsat"
	}
	return filepath.Join(home, "landsat")
}

func WebhookErrorNotificationUrl() string {
	return os.Getenv("WEBHOOK_ERROR_NOTIFICATION_URL")
}

func WebhookSuccessNotificationUrl() string {
	return os.Getenv("WEBHOOK_SUCCESS_NOTIFICATION_URL")
}
