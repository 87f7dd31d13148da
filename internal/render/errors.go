package render

import "errors"

// ErrRenderInFlight indicates a render was requested while another render
// for the same session is still running.
var ErrRenderInFlight = errors.New("render already in flight")
