package public

import (
	handlershared "github.com/qrewards/qrewards/internal/http/handlers/shared"
)

type handlerMappedError = handlershared.MappedError

var (
	respondError       = handlershared.RespondError
	respondMappedError = handlershared.RespondMappedError
)
