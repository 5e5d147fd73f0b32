package admin

import (
	handlershared "github.com/qrewards/qrewards/internal/http/handlers/shared"
)

var (
	requestLog         = handlershared.RequestLog
	respondError       = handlershared.RespondError
	respondErrorf      = handlershared.RespondErrorf
	respondMappedError = handlershared.RespondMappedError
)
