// Package feng implements the client connection core of the Feng RTSP
// streaming server: it accepts RTSP control connections over TCP and SCTP,
// serves each client from a dedicated worker, monitors stream timeouts of
// the attached RTP sessions and tears everything down on disconnect.
//
// RTSP method semantics are not implemented here; received requests are
// handed to a Handler.
package feng

const serverHeader = "feng/1.1.0"
