package mailer

import (
	"errors"
	"fmt"
	"net/textproto"
)

var (
	// ErrConfigurationMissing is reported by Config.Validate when a required
	// SMTP setting is absent. Initialize only logs it.
	ErrConfigurationMissing = errors.New("mailer: smtp configuration missing")

	// ErrTransportNotConfigured is returned by Send while no SMTP client exists.
	ErrTransportNotConfigured = errors.New("mailer: transport not configured")

	// ErrDeliveryFailed matches every *DeliveryError via errors.Is.
	ErrDeliveryFailed = errors.New("mailer: email delivery failed")
)

// SMTP phases recorded on a DeliveryError.
const (
	CommandConnect = "CONNECT"
	CommandAuth    = "AUTH"
	CommandSend    = "SEND"
)

// DeliveryError describes an SMTP-level failure. Code is the SMTP reply code
// when the server sent one, zero otherwise.
type DeliveryError struct {
	Command string
	Code    int
	Err     error
}

func newDeliveryError(command string, err error) *DeliveryError {
	de := &DeliveryError{Command: command, Err: err}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		de.Code = tpErr.Code
	}
	return de
}

func (e *DeliveryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("mailer: delivery failed during %s (code %d): %v", e.Command, e.Code, e.Err)
	}
	return fmt.Sprintf("mailer: delivery failed during %s: %v", e.Command, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDeliveryFailed }

// dialCommand guesses whether a dial failure happened while authenticating.
// gomail performs connect, EHLO, STARTTLS and AUTH inside a single Dial call.
func dialCommand(err error) string {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535, 538:
			return CommandAuth
		}
	}
	return CommandConnect
}
