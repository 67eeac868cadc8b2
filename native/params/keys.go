package params

const (
	// ParamsKeySettings stores the protocol settings overrides.
	ParamsKeySettings = "protocol/settings"
	// ParamsKeyPauses stores the module pause configuration.
	ParamsKeyPauses = "protocol/pauses"
)
