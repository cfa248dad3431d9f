package httpapi

import (
	"errors"
	"strconv"

	"github.com/z3y-go/z3y/lib/z3y"
)

var errNotFound = errors.New("not found")

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

// parseID accepts either a decimal or 0x-prefixed hexadecimal string, since
// ClassIDs and InterfaceIDs are most naturally written in hex but URL path
// segments are easiest to type in decimal during manual debugging.
func parseID(s string) (z3y.ID, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return z3y.NoID, err
	}
	return z3y.ID(n), nil
}
