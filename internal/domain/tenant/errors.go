package tenant

import "errors"

var (
	// ErrMemberNotFound indicates the member doesn't exist.
	ErrMemberNotFound = errors.New("member not found")
	// ErrCompanyNotFound indicates the company doesn't exist.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrPlanNotFound indicates the plan doesn't exist.
	ErrPlanNotFound = errors.New("plan not found")
)
