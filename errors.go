package cgr

// errors.go declares the error kinds the engine reports.  Load-time
// structural problems abort the plan being loaded, per-bundle outcomes
// never abort a simulation run.

import (
	"errors"
	"fmt"
)

// ErrNoRoute is returned by a search when the destination's arrival time
// remains unset after the frontier is exhausted.  It marks a normal,
// recoverable outcome, not a fault.
var ErrNoRoute = errors.New("no route found")

// ErrContactDepleted accompanies a suppression transition triggered by
// residual volume exhaustion.  Informational, never fatal by itself.
var ErrContactDepleted = errors.New("contact depleted")

// InvalidContactPlanError reports a malformed schedule discovered while
// loading a contact plan.  Fatal for that plan.
type InvalidContactPlanError struct {
	Reason string
}

func (icp *InvalidContactPlanError) Error() string {
	return fmt.Sprintf("invalid contact plan: %s", icp.Reason)
}

// invalidPlan is a convenience constructor used throughout plan loading
func invalidPlan(format string, args ...any) error {
	return &InvalidContactPlanError{Reason: fmt.Sprintf(format, args...)}
}

// ConfigConflictError reports an incompatible combination of configuration
// options, detected when a simulator is constructed.  Never silently
// downgraded.
type ConfigConflictError struct {
	Reason string
}

func (cc *ConfigConflictError) Error() string {
	return fmt.Sprintf("configuration conflict: %s", cc.Reason)
}

func configConflict(format string, args ...any) error {
	return &ConfigConflictError{Reason: fmt.Sprintf(format, args...)}
}

// ReportErrs accumulates the non-nil members of a list of errors into
// a single error, returning nil if all members are nil
func ReportErrs(errs []error) error {
	errMsg := []string{}
	for _, err := range errs {
		if err != nil {
			errMsg = append(errMsg, err.Error())
		}
	}
	if len(errMsg) == 0 {
		return nil
	}
	return errors.New(joinErrStrings(errMsg))
}

func joinErrStrings(msgs []string) string {
	rtn := msgs[0]
	for idx := 1; idx < len(msgs); idx++ {
		rtn += ", " + msgs[idx]
	}
	return rtn
}
