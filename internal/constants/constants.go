package constants

const (
	AppName            = "habitual"
	DefaultKeyringUser = "current-user"
	DefaultConfigPath  = "~/.config/habitual/habitual.db"
	Version            = "v0.1.0"

	// DateFormat is the standard calendar-date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// ClockFormat is the time-of-day format stored alongside check-in dates (HH:MM:SS)
	ClockFormat = "15:04:05"

	// UserIDLength is the required length of the externally assigned user code
	UserIDLength = 8

	// MinPasswordLength is the minimum accepted password length
	MinPasswordLength = 6

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitual-"
	BackupFileSuffix = ".db"

	// LockfileName is the single-session guard file kept in the config directory
	LockfileName = "habitual.lock"
)
