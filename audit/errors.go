package audit

import "errors"

// ErrInvalidRuleFile is returned when a rule file cannot be parsed or a rule is incomplete.
var ErrInvalidRuleFile = errors.New("invalid audit rule file")
