package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"

	"riddlerush/internal/model"
)

// validateSignal checks that payload is a well-formed WebRTC message of
// the given type: a session description for offers and answers, an ICE
// candidate for ice.
func validateSignal(t model.SignalType, payload json.RawMessage) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidSignal)
	}

	switch t {
	case model.SignalOffer, model.SignalAnswer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(payload, &sd); err != nil {
			return fmt.Errorf("%w: %s payload is not a session description: %v", ErrInvalidSignal, t, err)
		}
		want := webrtc.SDPTypeOffer
		if t == model.SignalAnswer {
			want = webrtc.SDPTypeAnswer
		}
		if sd.Type != want {
			return fmt.Errorf("%w: %s payload has type %q", ErrInvalidSignal, t, sd.Type.String())
		}
		if strings.TrimSpace(sd.SDP) == "" {
			return fmt.Errorf("%w: %s payload has no sdp", ErrInvalidSignal, t)
		}
		if _, err := sd.Unmarshal(); err != nil {
			return fmt.Errorf("%w: %s sdp does not parse: %v", ErrInvalidSignal, t, err)
		}
	case model.SignalICE:
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(payload, &candidate); err != nil {
			return fmt.Errorf("%w: ice payload is not a candidate: %v", ErrInvalidSignal, err)
		}
		// An empty candidate string marks end-of-candidates; only a
		// missing field is rejected.
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &fields); err != nil {
			return fmt.Errorf("%w: ice payload is not a candidate: %v", ErrInvalidSignal, err)
		}
		if _, ok := fields["candidate"]; !ok {
			return fmt.Errorf("%w: ice payload has no candidate", ErrInvalidSignal)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSignal, t)
	}
	return nil
}
