package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonCaptureDevice ReasonCode = "capture_device"
	ReasonCaptureFormat ReasonCode = "capture_format"

	ReasonSessionState ReasonCode = "session_state"

	ReasonEngineTranscribe ReasonCode = "engine_transcribe"

	ReasonPolish ReasonCode = "polish"

	ReasonTransportDial   ReasonCode = "transport_dial"
	ReasonTransportProbe  ReasonCode = "transport_probe"
	ReasonTransportSend   ReasonCode = "transport_send"
	ReasonTransportClosed ReasonCode = "transport_closed"
	ReasonTransportURL    ReasonCode = "transport_url"

	ReasonProtocolDecode ReasonCode = "protocol_decode"
	ReasonProtocolEncode ReasonCode = "protocol_encode"
)
