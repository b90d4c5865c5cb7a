package settings

// Settings is the process-wide singleton row: platform flags read on every
// registration attempt, mutated only through the admin endpoints.
type Settings struct {
	PlatformName        string `json:"platformName"`
	DefaultRole         string `json:"defaultRole"`
	RegistrationAllowed bool   `json:"registrationAllowed"`
	MaintenanceMode     bool   `json:"maintenanceMode"`
}
