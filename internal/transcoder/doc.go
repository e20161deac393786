// Package transcoder adapts the external ffprobe/ffmpeg tools.
//
// It covers three operations:
//   - [Transcoder.Probe]: technical metadata with rotation-corrected dimensions
//   - [Transcoder.ExtractFrame]: a single still frame captured from stdout
//   - [Transcoder.Transcode]: an optimized MP4 copy, software or VAAPI profile
//
// Failed invocations return [*ToolError], whose message is the tool's stderr
// so single-item callers can report it verbatim.
package transcoder
