package login

// Client-facing opcodes (spec §6 "Client-facing TCP, login service").
// Server replies mirror the same id as the request they answer.
const (
	OpcodeLogonChallenge     = 0x00
	OpcodeLogonProof         = 0x01
	OpcodeReconnectChallenge = 0x02
	OpcodeReconnectProof     = 0x03
	OpcodeRealmList          = 0x10
)

// Login result codes (spec §6 "Login result codes"), wire u8.
const (
	ResultSuccess              = 0x00
	ResultFailBanned           = 0x03
	ResultFailUnknownAccount   = 0x04
	ResultFailIncorrectPass    = 0x05
	ResultFailAlreadyOnline    = 0x06
	ResultFailNoTime           = 0x07
	ResultFailDbBusy           = 0x08
	ResultFailVersionInvalid   = 0x09
	ResultFailInvalidServer    = 0x0B
	ResultFailSuspended        = 0x0C
)

// SupportedBuild is the single client build this login service accepts
// (spec §4.3: "validate build id against a single supported value").
const SupportedBuild = 8606
