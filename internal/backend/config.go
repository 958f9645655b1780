package backend

import (
	"fmt"

	"aicfo/internal/config"
)

// FromAppConfig converts the application config to backend config. For the
// sheets backend the service account key is read here.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	cfg := Config{
		Type:            backendType,
		SpreadsheetID:   appConfig.SpreadsheetID,
		SpreadsheetName: appConfig.SpreadsheetName,
		SheetName:       appConfig.SheetName,
		SeedFile:        appConfig.MemorySeedFile,
	}
	if backendType == SheetsBackend {
		creds, err := appConfig.Credentials()
		if err != nil {
			return Config{}, err
		}
		cfg.Credentials = creds
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == SheetsBackend {
		if c.SpreadsheetID == "" && c.SpreadsheetName == "" {
			return fmt.Errorf("spreadsheet id or name is required for sheets backend")
		}
		if len(c.Credentials) == 0 {
			return fmt.Errorf("service account credentials are required for sheets backend")
		}
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{SheetsBackend.String(), MemoryBackend.String()}
}
