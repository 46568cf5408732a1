package subscription

import "time"

// AccessState is the derived permission classification for physical entry.
// It is a pure function of the latest subscription row plus wall-clock time
// and must be re-derived at every decision point: a grace window can expire
// between issuance and validation.
type AccessState string

const (
	StateActive     AccessState = "active"
	StateGrace      AccessState = "grace"
	StateRestricted AccessState = "restricted"
)

// DeriveAccessState classifies a subscription at the given instant. The
// recovered flag is true exactly when the row still carries the one-shot
// recovered delinquency marker. A nil subscription is restricted: members
// with no subscription row fail closed.
func DeriveAccessState(sub *Subscription, now time.Time) (AccessState, bool) {
	if sub == nil {
		return StateRestricted, false
	}

	if sub.Status == StatusCanceled || sub.Status == StatusUnpaid {
		return StateRestricted, false
	}

	switch sub.DelinquencyState {
	case DelinquencyCurrent:
		return StateActive, false
	case DelinquencyRecovered:
		return StateActive, true
	case DelinquencyGrace:
		if sub.GracePeriodUntil != nil && now.Before(*sub.GracePeriodUntil) {
			return StateGrace, false
		}
		return StateRestricted, false
	case DelinquencyRestricted:
		return StateRestricted, false
	default:
		return StateRestricted, false
	}
}

// CanIssueCheckInToken reports whether the member behind this subscription
// may mint an entry token right now.
func CanIssueCheckInToken(sub *Subscription, now time.Time) bool {
	state, _ := DeriveAccessState(sub, now)
	return state == StateActive || state == StateGrace
}
