// Package navigation keeps GUID-addressed frames and navigates between them.
//
// A navigation request moves through Idle -> Evaluating -> Committed or
// Rejected. While Evaluating, the frame's guard may veto the request or
// redirect it by calling NavigateTo for another frame; such a nested call is
// an independent request and completes before the guard returns. A vetoed
// request leaves the current frame untouched and the target frame
// unconstructed.
//
// GUIDs keep their canonical string form externally and map to a dense
// index internally.
package navigation
