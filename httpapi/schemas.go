package httpapi

// SnapshotResponse is the JSON shape returned by GET /snapshot: a flat
// projection of state.Snapshot, grounded on the teacher's gateway
// response schemas (pkg/http/schemas.go) which likewise flatten an
// internal struct into a small set of stable JSON fields rather than
// serializing it directly.
type SnapshotResponse struct {
	LinkOK        bool       `json:"link_ok"`
	FrameMask     uint8      `json:"frame_valid_mask"`
	Positions     [6]float64 `json:"positions_rad"`
	Velocities    [6]float64 `json:"velocities_rad_s"`
	Torques       [6]float64 `json:"torques_nm"`
	EndPose       [6]float64 `json:"end_pose"` // x,y,z (mm), rx,ry,rz (rad)
	GripperPos    float64    `json:"gripper_position_mm"`
	GripperEffort float64    `json:"gripper_effort_n"`
	RxFPS         float64    `json:"rx_fps"`
	TxFPS         float64    `json:"tx_fps"`
}

// ModeRequest is the JSON body of POST /mode.
type ModeRequest struct {
	Mode string `json:"mode"` // "position" or "mit"
}

// ErrorResponse is the JSON body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
