package types

// ---- Camera configuration (retained on "config/camera") ----

// CameraConfig is the desired camera setup. Empty strings and nil pointers
// leave the corresponding setting as it is, so a partial config sent on
// "camera/control/set" only changes what it names.
type CameraConfig struct {
	Resolution   string `json:"resolution,omitempty"`    // e.g. "640x480"
	Format       string `json:"format,omitempty"`        // "jpeg", "rgb565", "yuv"
	Effect       string `json:"effect,omitempty"`        // "normal", "cool", "warm", ...
	WhiteBalance string `json:"white_balance,omitempty"` // "auto", "sunny", "office", "cloudy", "home"
	Quality      string `json:"quality,omitempty"`       // "high", "medium", "low"

	Brightness *int8 `json:"brightness,omitempty"` // [-4,+4]
	Contrast   *int8 `json:"contrast,omitempty"`   // [-3,+3]
	Saturation *int8 `json:"saturation,omitempty"` // [-3,+3]
	Exposure   *int8 `json:"exposure,omitempty"`   // [-3,+3]

	Sharpness *uint8 `json:"sharpness,omitempty"` // 0..8, 3MP only

	AutoWhiteBalance *bool `json:"auto_white_balance,omitempty"`
	AutoExposure     *bool `json:"auto_exposure,omitempty"`
	AutoGain         *bool `json:"auto_gain,omitempty"`
	ISO              int   `json:"iso,omitempty"` // 1..32; 0 leaves manual gain unset

	IntervalMs *uint32 `json:"interval_ms,omitempty"` // periodic capture; 0 disables
}

// ---- Controls ----

// CaptureRequest is sent on "camera/control/capture".
type CaptureRequest struct {
	Tag string `json:"tag,omitempty"` // echoed in the result
}

// CaptureResult is the reply to a CaptureRequest.
type CaptureResult struct {
	OK        bool   `json:"ok"`
	ID        string `json:"id"`
	Tag       string `json:"tag,omitempty"`
	Sensor    string `json:"sensor"`
	Total     int    `json:"total"`     // FIFO length reported by the bridge
	Bytes     int    `json:"bytes"`     // payload bytes delivered to the sink
	Chunks    uint32 `json:"chunks"`    // burst reads the FIFO length implies
	EndMarker bool   `json:"end_marker"` // payload ended on 0xFF 0xD9
	Anomaly   bool   `json:"anomaly,omitempty"`
	TS        int64  `json:"ts_ns"`
}

// ---- Events ----

// CaptureProgress is published on "camera/event/progress" per drained chunk.
type CaptureProgress struct {
	ID    string `json:"id"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// FifoAnomaly is published on "camera/event/anomaly" when the reported FIFO
// length is implausibly large.
type FifoAnomaly struct {
	ID     string `json:"id"`
	Length int    `json:"length"`
	Error  string `json:"error"` // errcode, always "fifo_length"
}

// ---- Camera state (retained on "camera/state") ----

type CameraLevel string

const (
	LevelInit      CameraLevel = "init"
	LevelReady     CameraLevel = "ready"
	LevelCapturing CameraLevel = "capturing"
	LevelError     CameraLevel = "error"
	LevelStopped   CameraLevel = "stopped"
)

type CameraState struct {
	Level    CameraLevel `json:"level"`
	Sensor   string      `json:"sensor,omitempty"`
	Captures uint32      `json:"captures"`
	Error    string      `json:"error,omitempty"` // errcode of the last failure
	TS       int64       `json:"ts_ns"`
}

// ---- Replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`            // errcode
	Detail string `json:"detail,omitempty"` // human-readable context
}
