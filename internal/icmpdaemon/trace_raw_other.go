//go:build !linux && !darwin

package icmpdaemon

import "errors"

// The hand-built IP header path is unix-specific (IP_HDRINCL raw
// sockets); other platforms are expected to pass the SetTTL capability
// probe, so this fallback only reports its own absence.
type rawTraceSender struct{}

func openRawTraceSender() (*rawTraceSender, error) {
	return nil, errors.New("icmpdaemon: raw IP header path unavailable on this platform")
}

func (r *rawTraceSender) close() error { return nil }

func (r *rawTraceSender) send(j *job) error {
	return errors.New("icmpdaemon: raw IP header path unavailable on this platform")
}
