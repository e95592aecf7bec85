package cmd

import (
	_ "paritybit-setup/cmd/provision"
	_ "paritybit-setup/cmd/render"
	_ "paritybit-setup/cmd/root"
	_ "paritybit-setup/cmd/server"
	_ "paritybit-setup/cmd/status"
)
