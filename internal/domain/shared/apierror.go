package shared

import (
	"errors"
	"fmt"
)

// Game API error codes that routines branch on explicitly. These values are
// defined by the game server and must stay bit-exact.
const (
	CodeItemNotSoldByNPC    = 441
	CodeMissingTradeItems   = 478
	CodeEquipSlotOccupied   = 485
	CodeEquipNotStackable   = 491
	CodeInsufficientGold    = 492
	CodeSkillTooLow         = 493
	CodeInventoryFull       = 497
	CodeWrongMapTile        = 598
)

// GameAPIError carries the numeric error code returned by the game server.
// Conditional codes (441, 478, 485/491, 492, 493, 497, 598) are part of
// normal control flow and must be handled at the routine's call boundary;
// unknown codes propagate.
type GameAPIError struct {
	Code    int
	Message string
}

func (e *GameAPIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

func NewGameAPIError(code int, message string) *GameAPIError {
	return &GameAPIError{Code: code, Message: message}
}

// APIErrorCode extracts the game error code from err, or 0 if err is not a
// GameAPIError.
func APIErrorCode(err error) int {
	var apiErr *GameAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// IsAPIError reports whether err is a GameAPIError with the given code
func IsAPIError(err error, code int) bool {
	return APIErrorCode(err) == code
}
