package utils

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/samber/lo"
)

// CheckDeps verifies that every program in tools can be found, either as a
// path or on $PATH. All missing programs are reported together.
func CheckDeps(tools ...string) error {
	var errs []error
	for _, tool := range lo.Uniq(lo.Compact(tools)) {
		if _, err := exec.LookPath(tool); err != nil {
			errs = append(errs, fmt.Errorf("%s: not found", tool))
		}
	}
	return errors.Join(errs...)
}
