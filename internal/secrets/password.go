// Package secrets keeps the IMAP credential for the job-alerts source
// in the OS keychain, with an env fallback for headless deployments.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"jobscout-engine/internal/config"
)

const KeyringService = "jobscout"

// EnvIMAPPassword overrides the keychain when set.
const EnvIMAPPassword = "JOBSCOUT_IMAP_PASSWORD"

func GetIMAPPassword(keyringAccount string) (string, error) {
	if pw := strings.TrimSpace(os.Getenv(EnvIMAPPassword)); pw != "" {
		return pw, nil
	}

	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}

	return "", errors.New("IMAP password not found (set it in the keychain or via " + EnvIMAPPassword + ")")
}

func SetIMAPPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteIMAPPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

func IMAPKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf(
		"jobscout:imap:%s@%s",
		cfg.Sources.JobAlerts.Username,
		cfg.Sources.JobAlerts.IMAPHost,
	)
}
