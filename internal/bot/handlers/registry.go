package handlers

import (
	"time"

	"github.com/edgard/guildwatch/internal/logger"
)

// DefaultEventTimeout bounds the processing of a single gateway event.
const DefaultEventTimeout = 2 * time.Minute

// HandlerAdder registers discordgo event handlers, usually a *discordgo.Session.
type HandlerAdder interface {
	AddHandler(handler interface{}) func()
}

// RegisterAll wires every gateway handler into adder and returns a function
// that removes them again.
func RegisterAll(adder HandlerAdder, deps HandlerDeps, timeout time.Duration) func() {
	if timeout <= 0 {
		timeout = DefaultEventTimeout
	}
	log := deps.Logger.With("component", "gateway")

	removers := []func(){
		adder.AddHandler(logger.Middleware(log, timeout, HumansInGuilds(NewMessageCreateHandler(deps)))),
		adder.AddHandler(logger.Middleware(log, timeout, NewMessageUpdateHandler(deps))),
		adder.AddHandler(logger.Middleware(log, timeout, NewMessageDeleteHandler(deps))),
		adder.AddHandler(logger.Middleware(log, timeout, NewMessageDeleteBulkHandler(deps))),
	}
	if deps.GeminiClient != nil {
		removers = append(removers,
			adder.AddHandler(logger.Middleware(log, timeout, HumansInGuilds(NewMentionHandler(deps)))))
	} else {
		log.Info("Gemini not configured, mention replies disabled")
	}

	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

