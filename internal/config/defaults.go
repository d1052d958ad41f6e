package config

const (
	defaultPackageDir               = "~/.local/share/bindery/packages"
	defaultLogDir                   = "~/.local/share/bindery/logs"
	defaultRepositoryRequestTimeout = 120
	defaultNotifyRequestTimeout     = 10
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultMinFreeSpaceGiB          = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			PackageDir: defaultPackageDir,
			LogDir:     defaultLogDir,
		},
		Repository: Repository{
			RequestTimeout: defaultRepositoryRequestTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Batch:          true,
			Errors:         true,
		},
		Batch: Batch{
			MinFreeSpaceGiB: defaultMinFreeSpaceGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
