package env

// Build information, set with -ldflags "-X paritybit-setup/internal/env.Version=1.2.3".
var (
	Version       = "dev"
	BuildTime     = ""
	BuildTag      = ""
	BuildCommitId = ""
)

// DefaultEnvFile is the dotenv file read before configuration, a missing file is fine.
const DefaultEnvFile = "/etc/default/paritybit-setup"
