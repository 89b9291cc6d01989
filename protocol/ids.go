package protocol

// Command frame IDs (host -> arm). Position and MIT targets occupy one
// frame per joint; the joint index (0-based J1..J6) is id - base.
const (
	IDEnableDisable  uint32 = 0x150
	IDModeSelect     uint32 = 0x151
	IDPositionTarget uint32 = 0x155 // .. 0x15A, one per joint
	IDMitTarget      uint32 = 0x160 // .. 0x165, one per joint
	IDGripperSet     uint32 = 0x170
)

// Feedback frame IDs (arm -> host). Joint position and dynamics groups
// pack two joints per frame; the end-pose group spans three frames.
const (
	IDJointPosition01 uint32 = 0x2A1 // J1, J2
	IDJointPosition23 uint32 = 0x2A2 // J3, J4
	IDJointPosition45 uint32 = 0x2A3 // J5, J6

	IDJointDynamic01 uint32 = 0x2A4 // J1, J2
	IDJointDynamic23 uint32 = 0x2A5 // J3, J4
	IDJointDynamic45 uint32 = 0x2A6 // J5, J6

	IDEndPoseXY uint32 = 0x2A7 // x, y
	IDEndPoseZR uint32 = 0x2A8 // z, rx
	IDEndPoseRR uint32 = 0x2A9 // ry, rz

	IDGripperFeedback      uint32 = 0x2B0
	IDControlFlagsFeedback uint32 = 0x2B1
)

// positionFrameJoints and dynamicFrameJoints map a frame ID to the
// zero-based joint indices it packs, used by the feedback decoders.
var positionFrameJoints = map[uint32][2]int{
	IDJointPosition01: {0, 1},
	IDJointPosition23: {2, 3},
	IDJointPosition45: {4, 5},
}

var dynamicFrameJoints = map[uint32][2]int{
	IDJointDynamic01: {0, 1},
	IDJointDynamic23: {2, 3},
	IDJointDynamic45: {4, 5},
}

func jointIDForPositionTarget(joint int) uint32 { return IDPositionTarget + uint32(joint) }
func jointIDForMitTarget(joint int) uint32      { return IDMitTarget + uint32(joint) }
