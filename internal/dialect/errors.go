package dialect

import "errors"

// ErrUnknownProvider indicates a provider name no dialect registers under.
var ErrUnknownProvider = errors.New("unknown database provider")

// ErrUnsupportedStep indicates a migration step the target engine cannot
// express. A correctly configured policy never produces such a step, so
// hitting it means the differ was driven with the wrong dialect.
var ErrUnsupportedStep = errors.New("step not supported on this engine")
