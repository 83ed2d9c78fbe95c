package graph

import "errors"

// ErrMaxStepsExceeded indicates that graph execution reached the maximum
// allowed step count without completing. This guards against runs that
// never reach a terminal node.
var ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

// ErrNoRoute indicates that a node completed without an explicit route
// and no declared edge matched the current state.
var ErrNoRoute = errors.New("no valid route from node")
